package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deploytracker/internal/config"
	"deploytracker/internal/metrics"
	"deploytracker/internal/middleware"
	"deploytracker/internal/services"
	"deploytracker/internal/templates"
	"deploytracker/internal/validators"
)

// NewRouter wires the panel, the JSON API, health and metrics routes.
// m may be nil when metrics are disabled.
func NewRouter(cfg *config.Config, sessionService *services.SessionService, m *metrics.Metrics, logger *zap.Logger) (*gin.Engine, error) {
	if err := validators.RegisterGin(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	tmpl, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	if m != nil {
		r.Use(m.Middleware())
	}

	healthHandler := NewHealthHandler(sessionService)
	r.GET("/healthz", healthHandler.Health)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	sessionMaxAge := int(cfg.Session.IdleTimeout.Seconds())
	session := middleware.Session(sessionService, sessionMaxAge, cfg.Session.Secure, logger)

	trackerHandler := NewTrackerHandler(logger)
	panelGroup := r.Group("/")
	panelGroup.Use(middleware.IPWhitelist(cfg.Security.AllowedIPs, logger))
	panelGroup.Use(middleware.CSRF(cfg.Session.Secure))
	panelGroup.Use(session)
	{
		panelGroup.GET("/", trackerHandler.Page)
		panelGroup.POST("/draft", trackerHandler.UpdateDraft)
		panelGroup.POST("/deployments", trackerHandler.Create)
	}

	apiHandler := NewAPIHandler(sessionService, logger)
	apiGroup := r.Group("/api/v1")
	apiGroup.Use(middleware.IPWhitelist(cfg.Security.AllowedIPs, logger))
	apiGroup.Use(session)
	{
		apiGroup.GET("/deployments", apiHandler.ListDeployments)
		apiGroup.POST("/deployments", apiHandler.CreateDeployment)
		apiGroup.GET("/draft", apiHandler.GetDraft)
		apiGroup.PATCH("/draft", apiHandler.UpdateDraft)
		apiGroup.GET("/chart", apiHandler.Chart)
		apiGroup.GET("/summary", apiHandler.Summary)
		apiGroup.DELETE("/session", apiHandler.EndSession)
	}

	return r, nil
}
