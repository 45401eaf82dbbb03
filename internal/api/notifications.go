package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) runNotifications(c *gin.Context) {
	res, err := h.cfg.Runner.Trigger(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

func (h *Handler) testNotification(c *gin.Context) {
	r, err := h.cfg.Tester.SendTest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"projectId": r.ProjectID,
		"channel":   r.Channel,
		"title":     r.Title,
		"body":      r.Body,
	})
}
