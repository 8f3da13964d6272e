package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/runningcoach/backend/lib/mytime"
	"github.com/runningcoach/backend/lib/myvault"
	"github.com/runningcoach/backend/services/activity"
	"github.com/runningcoach/backend/services/oauth"
	"github.com/runningcoach/backend/services/oauth/oauthvault"
	"github.com/runningcoach/backend/services/settings"
	"github.com/runningcoach/backend/services/strava"
)

var usableToken = oauthvault.Token{
	ProviderName: "strava",
	ClientID:     "strava_client_id",
	SessionUID:   "abcdef",
	Scopes:       "read,activity:read",
	CreatedAt:    mytime.ExampleTime,
	AccessToken:  "tok",
	RefreshToken: "r",
	AthleteID:    42,
	AthleteName:  "Eliud Kipchoge",
}

func TestDashboard(t *testing.T) {

	t.Run("Home page when not connected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, vault, _, _ := setup(t, ctrl)

		// given
		vault.EXPECT().Get(gomock.Any(), oauth.CreateTokenUID("strava")).Return(oauthvault.Token{}, false, nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		got := response.Body.String()
		assert.Contains(t, got, "Connect with Strava")
		assert.Contains(t, got, `href="/auth/login"`)
		assert.NotContains(t, got, "Go to dashboard")
	})

	t.Run("Home page when connected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, vault, _, _ := setup(t, ctrl)

		// given
		vault.EXPECT().Get(gomock.Any(), oauth.CreateTokenUID("strava")).Return(usableToken, true, nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		got := response.Body.String()
		assert.Contains(t, got, "Connected as Eliud Kipchoge")
		assert.Contains(t, got, "Go to dashboard")
	})

	t.Run("Dashboard redirects when not connected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, vault, _, _ := setup(t, ctrl)

		// given
		vault.EXPECT().Get(gomock.Any(), oauth.CreateTokenUID("strava")).Return(oauthvault.Token{}, false, nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/dashboard", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 303, response.Code)
		assert.Equal(t, "/", response.Header().Get("Location"))
	})

	t.Run("Dashboard shows stats", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, vault, activityService, settingsService := setup(t, ctrl)

		// given
		vault.EXPECT().Get(gomock.Any(), oauth.CreateTokenUID("strava")).Return(usableToken, true, nil)
		activityService.EXPECT().RecentActivities(gomock.Any()).Return(activity.ActivitySnapshot{
			AthleteID: 42,
			Activities: []strava.Activity{
				{
					ID:             1,
					Name:           "Morning Run",
					Type:           "Run",
					Distance:       10123,
					MovingTime:     3000,
					StartDateLocal: time.Date(2023, 2, 26, 9, 0, 0, 0, time.UTC),
				},
			},
			CachedAt: mytime.ExampleTime,
		}, nil)
		activityService.EXPECT().PersonalRecords(gomock.Any()).Return(map[string]*activity.PersonalRecord{
			"5km": {
				TimeSeconds:   1250,
				TimeFormatted: "20:50",
				Pace:          "4:10/km",
				Date:          "2023-02-26",
				ActivityID:    1,
				ActivityName:  "Morning Run",
			},
			"marathon": nil,
		}, nil)
		activityService.EXPECT().WeeklySummary(gomock.Any()).Return(activity.WeekSummary{
			RunCount:       1,
			TotalDistance:  10123,
			TotalDuration:  3000,
			TotalElevation: 120,
		}, nil)
		settingsService.EXPECT().GetSettings(gomock.Any()).Return(settings.DefaultSettings(), nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/dashboard", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		got := response.Body.String()
		assert.Contains(t, got, "Welcome Eliud Kipchoge")
		assert.Contains(t, got, "Morning Run")
		assert.Contains(t, got, "20:50")
		assert.Contains(t, got, "4:10/km")
		assert.Contains(t, got, "Recovery")
		assert.Contains(t, got, "190")
	})

	t.Run("Dashboard degrades when activities cannot be fetched", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, vault, activityService, _ := setup(t, ctrl)

		// given
		vault.EXPECT().Get(gomock.Any(), oauth.CreateTokenUID("strava")).Return(usableToken, true, nil)
		activityService.EXPECT().RecentActivities(gomock.Any()).Return(activity.ActivitySnapshot{},
			assert.AnError)

		// when
		request, err := http.NewRequest(http.MethodGet, "/dashboard", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), "Could not fetch your activities")
	})

	t.Run("Health endpoint", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl)

		// when
		request, err := http.NewRequest(http.MethodGet, "/health", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), `"status": "healthy"`)
	})
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, *myvault.MockVaultReader[oauthvault.Token], *activity.MockService, *settings.MockService) {
	c := context.TODO()
	router := mux.NewRouter()
	vault := myvault.NewMockVaultReader[oauthvault.Token](ctrl)
	activityService := activity.NewMockService(ctrl)
	settingsService := settings.NewMockService(ctrl)

	sut := NewService(vault, activityService, settingsService, NewViews())

	err := sut.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	return c, router, vault, activityService, settingsService
}
