package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/profile"
)

func (h *Handler) getProfile(c *gin.Context) {
	ctx := c.Request.Context()
	first, err := h.cfg.Profiles.FirstLaunch(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	p, err := h.cfg.Profiles.Load(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p, "firstLaunch": first})
}

func (h *Handler) putProfile(c *gin.Context) {
	var p profile.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		h.writeError(c, apperrors.NewWrapper("api", "profile").
			Wrap(apperrors.ErrInvalidInput, "요청 형식이 올바르지 않습니다."))
		return
	}
	saved, err := h.cfg.Profiles.Save(c.Request.Context(), p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": saved, "firstLaunch": false})
}
