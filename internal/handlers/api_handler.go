package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"deploytracker/internal/middleware"
	"deploytracker/internal/models"
	"deploytracker/internal/repository"
	"deploytracker/internal/services"
	"deploytracker/internal/validators"
)

// APIHandler exposes the caller's tracker as JSON.
type APIHandler struct {
	sessionService *services.SessionService
	logger         *zap.Logger
}

func NewAPIHandler(sessionService *services.SessionService, logger *zap.Logger) *APIHandler {
	return &APIHandler{sessionService: sessionService, logger: logger}
}

type createDeploymentRequest struct {
	Name        *string `json:"name"`
	Environment string  `json:"environment" binding:"omitempty,environment"`
	Status      string  `json:"status" binding:"omitempty,status"`
}

type updateDraftRequest struct {
	Field string `json:"field" binding:"required,oneof=name environment status"`
	Value string `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListDeployments returns the session's deployments in insertion order.
// GET /api/v1/deployments
func (h *APIHandler) ListDeployments(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.GetTracker(c).Records())
}

// CreateDeployment applies any fields in the body to the draft, then adds
// the draft as a deployment.
// POST /api/v1/deployments
func (h *APIHandler) CreateDeployment(c *gin.Context) {
	tracker := middleware.GetTracker(c)

	// The body is optional. A chunked request may carry no bytes at all
	// even though its length is unknown, so EOF also means "no body".
	var req createDeploymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: bindingError(err)})
			return
		}
	}

	var updates []services.DraftUpdate
	if req.Name != nil {
		updates = append(updates, services.DraftUpdate{Field: models.DraftFieldName, Value: *req.Name})
	}
	if req.Environment != "" {
		updates = append(updates, services.DraftUpdate{Field: models.DraftFieldEnvironment, Value: req.Environment})
	}
	if req.Status != "" {
		updates = append(updates, services.DraftUpdate{Field: models.DraftFieldStatus, Value: req.Status})
	}
	if err := tracker.ApplyDraft(updates...); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	deployment := tracker.AddDeployment()
	h.logger.Info("deployment recorded",
		zap.String("session_id", middleware.GetSessionID(c)),
		zap.Int("id", deployment.ID),
		zap.String("environment", string(deployment.Environment)),
		zap.String("status", string(deployment.Status)),
	)

	c.JSON(http.StatusCreated, deployment)
}

// GetDraft returns the draft being composed.
// GET /api/v1/draft
func (h *APIHandler) GetDraft(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.GetTracker(c).Draft())
}

// UpdateDraft sets one draft field.
// PATCH /api/v1/draft
func (h *APIHandler) UpdateDraft(c *gin.Context) {
	tracker := middleware.GetTracker(c)

	var req updateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: bindingError(err)})
		return
	}

	if err := tracker.UpdateDraftField(models.DraftField(req.Field), req.Value); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, tracker.Draft())
}

// Chart returns deployment counts per environment.
// GET /api/v1/chart
func (h *APIHandler) Chart(c *gin.Context) {
	c.JSON(http.StatusOK, services.Project(middleware.GetTracker(c).Records()))
}

// Summary returns deployments, draft and chart from one consistent read.
// GET /api/v1/summary
func (h *APIHandler) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.GetTracker(c).Snapshot())
}

// EndSession discards the caller's deployments and draft. The next request
// with the same id starts over from the seed.
// DELETE /api/v1/session
func (h *APIHandler) EndSession(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if err := h.sessionService.End(sessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error("failed to end session", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to end session"})
		return
	}

	h.logger.Info("session ended", zap.String("session_id", sessionID))
	c.SetCookie(services.SessionCookieKey, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func bindingError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return validators.Describe(fieldErrs[0])
	}
	return "invalid request body"
}
