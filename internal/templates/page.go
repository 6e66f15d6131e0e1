package templates

import (
	"deploytracker/internal/models"
	"deploytracker/internal/services"
)

// Page is the data behind the "index" template.
type Page struct {
	Title        string
	CSRFToken    string
	Draft        models.Draft
	Deployments  []models.Deployment
	Chart        ChartView
	Environments []models.Environment
	Statuses     []models.DeploymentStatus
}

func NewPage(snap services.Snapshot, csrfToken string) Page {
	return Page{
		Title:        "Deployment Tracker",
		CSRFToken:    csrfToken,
		Draft:        snap.Draft,
		Deployments:  snap.Deployments,
		Chart:        NewChartView(snap.Chart),
		Environments: models.Environments,
		Statuses:     models.Statuses,
	}
}
