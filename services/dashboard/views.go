package dashboard

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/runningcoach/backend/services/activity"
	"github.com/runningcoach/backend/services/settings"
	"github.com/runningcoach/backend/services/strava"
)

//go:embed templates
var templateFolder embed.FS
var (
	indexPageTemplate     *template.Template
	dashboardPageTemplate *template.Template
	errorPageTemplate     *template.Template
)

func init() {
	indexPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/index.html"))
	dashboardPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/dashboard.html"))
	errorPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/error.html"))
}

type LandingPage struct {
	Connected   bool
	AthleteName string
}

type DashboardPage struct {
	AthleteName string
	Message     string
	HasData     bool
	Summary     activity.WeekSummary
	Records     map[string]*activity.PersonalRecord
	Activities  []strava.Activity
	Settings    settings.Settings
}

type ErrorPage struct {
	Message string
}

// Views renders the html pages. The oauth service renders through this type
// as well, so connect/decline outcomes look the same as the dashboard itself.
type Views struct {
}

func NewViews() *Views {
	return &Views{}
}

func (v Views) RenderLanding(w http.ResponseWriter, page LandingPage) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return indexPageTemplate.Execute(w, page)
}

func (v Views) RenderDashboard(w http.ResponseWriter, page DashboardPage) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return dashboardPageTemplate.Execute(w, page)
}

func (v Views) RenderConnected(w http.ResponseWriter, athleteName string) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return dashboardPageTemplate.Execute(w, DashboardPage{
		AthleteName: athleteName,
		Message:     "Successfully authenticated with Strava!",
	})
}

func (v Views) RenderError(w http.ResponseWriter, message string) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return errorPageTemplate.Execute(w, ErrorPage{
		Message: message,
	})
}
