package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deploytracker/internal/services"
)

type HealthHandler struct {
	sessionService *services.SessionService
}

func NewHealthHandler(sessionService *services.SessionService) *HealthHandler {
	return &HealthHandler{sessionService: sessionService}
}

// Health reports liveness and the number of open sessions.
// GET /healthz
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.sessionService.Count(),
	})
}
