package templates

import (
	"embed"
	"html/template"

	"deploytracker/internal/models"
)

//go:embed html/*.html
var htmlFS embed.FS

// New parses the embedded panel templates.
func New() (*template.Template, error) {
	return template.New("panel").Funcs(Funcs()).ParseFS(htmlFS, "html/*.html")
}

func Funcs() template.FuncMap {
	return template.FuncMap{
		"statusIcon": statusIcon,
		"iconClass":  iconClass,
	}
}

// statusIcon renders the glyph for a deployment status; unknown statuses
// get no icon.
func statusIcon(status models.DeploymentStatus) string {
	switch status.Icon() {
	case models.StatusIconCheck:
		return "✔"
	case models.StatusIconCross:
		return "✖"
	case models.StatusIconAlert:
		return "⚠"
	}
	return ""
}

func iconClass(status models.DeploymentStatus) string {
	switch status.Icon() {
	case models.StatusIconCheck:
		return "icon-success"
	case models.StatusIconCross:
		return "icon-failed"
	case models.StatusIconAlert:
		return "icon-pending"
	}
	return ""
}
