package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gochang/agri-notify/internal/catalog"
	"github.com/gochang/agri-notify/internal/config"
	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/project"
)

type projectView struct {
	project.Project
	CategoryLabel string `json:"categoryLabel"`
	Open          bool   `json:"open"`
	Subscribed    bool   `json:"subscribed"`
}

func (h *Handler) view(ctx context.Context, p project.Project) (projectView, error) {
	v := projectView{
		Project:       p,
		CategoryLabel: p.Category.Label(),
		Open:          p.OpenOn(h.today()),
	}
	if h.cfg.Subscriptions != nil {
		on, err := h.cfg.Subscriptions.OptedIn(ctx, p.ID)
		if err != nil {
			return v, err
		}
		v.Subscribed = on
	}
	return v, nil
}

func (h *Handler) listProjects(c *gin.Context) {
	ctx := c.Request.Context()
	projects, err := h.cfg.Projects.ListProjects(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if raw := c.Query("category"); raw != "" {
		projects = project.FilterByCategory(projects, project.ParseCategory(raw))
	}

	views := make([]projectView, 0, len(projects))
	for _, p := range projects {
		v, err := h.view(ctx, p)
		if err != nil {
			h.writeError(c, err)
			return
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, gin.H{"projects": views, "count": len(views)})
}

func (h *Handler) getProject(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.cfg.Projects.GetProject(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	v, err := h.view(ctx, p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": v, "detail": p.DetailText()})
}

func (h *Handler) subscribe(c *gin.Context)   { h.setSubscription(c, true) }
func (h *Handler) unsubscribe(c *gin.Context) { h.setSubscription(c, false) }

func (h *Handler) setSubscription(c *gin.Context, on bool) {
	ctx := c.Request.Context()
	p, err := h.cfg.Projects.GetProject(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.cfg.Subscriptions.SetOptIn(ctx, p.ID, on); err != nil {
		h.writeError(c, err)
		return
	}
	h.log.WithField("project_id", p.ID).WithField("subscribed", on).InfoContext(ctx, "Subscription changed")
	c.JSON(http.StatusOK, gin.H{"projectId": p.ID, "subscribed": on})
}

func (h *Handler) sampleCSV(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="sample_projects.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := catalog.WriteSampleCSV(c.Writer); err != nil {
		h.log.WithError(err).ErrorContext(c.Request.Context(), "Failed to write sample CSV")
	}
}

func (h *Handler) importProjects(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.ImportMaxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		h.writeError(c, apperrors.NewWrapper("api", "import").
			Wrap(apperrors.ErrInvalidInput, "업로드할 파일을 선택해주세요."))
		return
	}
	f, err := header.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ImportTimeout)
	defer cancel()
	rep, err := h.cfg.Importer.Import(ctx, header.Filename, data)
	if err != nil {
		if catalog.IsClientError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.GetUserMessage(err), "report": rep})
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": rep})
}
