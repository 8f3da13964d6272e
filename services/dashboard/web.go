package dashboard

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/runningcoach/backend/lib/mycontext"
	"github.com/runningcoach/backend/lib/myerrors"
	"github.com/runningcoach/backend/lib/myhttp"
	"github.com/runningcoach/backend/lib/mylog"
	"github.com/runningcoach/backend/lib/myvault"
	"github.com/runningcoach/backend/services/activity"
	"github.com/runningcoach/backend/services/oauth"
	"github.com/runningcoach/backend/services/oauth/oauthvault"
	"github.com/runningcoach/backend/services/settings"
)

const stravaProviderName = "strava"

type HealthStatus struct {
	Status string `json:"status"`
}

type webService struct {
	vault           myvault.VaultReader[oauthvault.Token]
	activityService activity.Service
	settingsService settings.Service
	views           *Views
	logger          mylog.Logger
}

func NewService(vault myvault.VaultReader[oauthvault.Token], activityService activity.Service, settingsService settings.Service, views *Views) *webService {
	return &webService{
		vault:           vault,
		activityService: activityService,
		settingsService: settingsService,
		views:           views,
		logger:          mylog.New("dashboard"),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/", s.homePage()).Methods("GET")
	router.HandleFunc("/dashboard", s.dashboardPage()).Methods("GET")
	router.HandleFunc("/health", s.healthPage()).Methods("GET")

	return nil
}

func (s *webService) homePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		token, exists, err := s.vault.Get(c, oauth.CreateTokenUID(stravaProviderName))
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInternalError(err))
			return
		}

		err = s.views.RenderLanding(w, LandingPage{
			Connected:   exists && token.IsUsable(),
			AthleteName: token.AthleteName,
		})
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInternalError(err))
			return
		}
	}
}

func (s *webService) dashboardPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		token, exists, err := s.vault.Get(c, oauth.CreateTokenUID(stravaProviderName))
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInternalError(err))
			return
		}
		if !exists || !token.IsUsable() {
			// Not connected yet: let the athlete start there
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		snapshot, err := s.activityService.RecentActivities(c)
		if err != nil {
			s.logger.Log(c, "", mylog.SeverityWarn, "Error fetching activities: %s", err)
			renderErr := s.views.RenderError(w, "Could not fetch your activities from Strava")
			if renderErr != nil {
				errorWriter.WriteError(c, w, 2, myerrors.NewInternalError(renderErr))
			}
			return
		}

		records, err := s.activityService.PersonalRecords(c)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		summary, err := s.activityService.WeeklySummary(c)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		userSettings, err := s.settingsService.GetSettings(c)
		if err != nil {
			errorWriter.WriteError(c, w, 5, err)
			return
		}

		err = s.views.RenderDashboard(w, DashboardPage{
			AthleteName: token.AthleteName,
			HasData:     true,
			Summary:     summary,
			Records:     records,
			Activities:  snapshot.Activities,
			Settings:    userSettings,
		})
		if err != nil {
			errorWriter.WriteError(c, w, 6, myerrors.NewInternalError(err))
			return
		}
	}
}

func (s *webService) healthPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		errorWriter.Write(c, w, http.StatusOK, HealthStatus{Status: "healthy"})
	}
}
