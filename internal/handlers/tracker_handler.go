package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deploytracker/internal/middleware"
	"deploytracker/internal/models"
	"deploytracker/internal/services"
	"deploytracker/internal/templates"
)

// TrackerHandler serves the HTML panel.
type TrackerHandler struct {
	logger *zap.Logger
}

func NewTrackerHandler(logger *zap.Logger) *TrackerHandler {
	return &TrackerHandler{logger: logger}
}

func (h *TrackerHandler) Page(c *gin.Context) {
	tracker := middleware.GetTracker(c)
	page := templates.NewPage(tracker.Snapshot(), middleware.GetCSRFToken(c))
	c.HTML(http.StatusOK, "index", page)
}

// UpdateDraft handles a single form edit. The edited field is named by
// "field"; its new value comes from "value" when present, otherwise from
// the form input of the same name, which is what htmx posts for a control
// inside the draft form.
func (h *TrackerHandler) UpdateDraft(c *gin.Context) {
	tracker := middleware.GetTracker(c)

	field, err := models.ParseDraftField(c.PostForm("field"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	value, ok := c.GetPostForm("value")
	if !ok {
		value = c.PostForm(string(field))
	}

	if err := tracker.UpdateDraftField(field, value); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	if isHTMX(c) {
		page := templates.NewPage(tracker.Snapshot(), middleware.GetCSRFToken(c))
		c.HTML(http.StatusOK, "draft_form", page)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// Create submits the draft. Fields posted with the form are applied to the
// draft first, so a plain HTML form works without per-field requests.
func (h *TrackerHandler) Create(c *gin.Context) {
	tracker := middleware.GetTracker(c)

	if err := tracker.ApplyDraft(formDraftUpdates(c)...); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	deployment := tracker.AddDeployment()
	h.logger.Info("deployment recorded",
		zap.String("session_id", middleware.GetSessionID(c)),
		zap.Int("id", deployment.ID),
		zap.String("environment", string(deployment.Environment)),
		zap.String("status", string(deployment.Status)),
	)

	if isHTMX(c) {
		c.Header("HX-Redirect", "/")
		c.Status(http.StatusOK)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func formDraftUpdates(c *gin.Context) []services.DraftUpdate {
	var updates []services.DraftUpdate
	for _, field := range []models.DraftField{models.DraftFieldName, models.DraftFieldEnvironment, models.DraftFieldStatus} {
		if value, ok := c.GetPostForm(string(field)); ok {
			updates = append(updates, services.DraftUpdate{Field: field, Value: value})
		}
	}
	return updates
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}
