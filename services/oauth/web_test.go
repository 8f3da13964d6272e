package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/runningcoach/backend/lib/mypublisher"
	"github.com/runningcoach/backend/lib/mystore"
	"github.com/runningcoach/backend/lib/mytime"
	"github.com/runningcoach/backend/lib/myuuid"
	"github.com/runningcoach/backend/lib/myvault"
	"github.com/runningcoach/backend/services/oauth/oauthclient"
	"github.com/runningcoach/backend/services/oauth/oauthevents"
	"github.com/runningcoach/backend/services/oauth/oauthvault"
	"github.com/runningcoach/backend/services/oauth/providers"
	"github.com/runningcoach/backend/services/strava"
)

const (
	stravaExampleScopes = "read,activity:read,activity:read_all,profile:read_all"
)

func TestOauth(t *testing.T) {

	t.Run("Start oauth login", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, sessionStorer, _, nower, uuider, oauthClient, publisher, _ := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		uuider.EXPECT().Create().Return("abcdef")

		oauthClient.EXPECT().ComposeAuthURL(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, req oauthclient.ComposeAuthURLRequest) (string, error) {
				assert.Equal(t, "strava", req.ProviderName)
				assert.Equal(t, "http://localhost:8888/auth/callback", req.CompletionURL)
				assert.Equal(t, stravaExampleScopes, req.Scope)
				assert.Equal(t, "abcdef", req.State)
				return "https://www.strava.com/oauth/authorize?client_id=strava_client_id", nil
			})

		sessionStorer.EXPECT().RunInTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, f func(ctx context.Context) error) error {
				return f(ctx)
			})
		sessionStorer.EXPECT().Put(gomock.Any(), "abcdef", gomock.Any()).DoAndReturn(
			func(ctx context.Context, uid string, session OAuthSessionSetup) error {
				assert.Equal(t, "abcdef", session.UID)
				assert.Equal(t, "strava", session.ProviderName)
				assert.Equal(t, "/dashboard", session.ReturnURL)
				assert.Equal(t, "2023-02-27T23:58:59", session.CreatedAt.Format("2006-01-02T15:04:05"))
				assert.Equal(t, "2023-02-27T23:58:59", session.LastModified.Format("2006-01-02T15:04:05"))
				return nil
			})

		publisher.EXPECT().Publish(gomock.Any(), oauthevents.TopicName, oauthevents.OAuthSessionSetupStarted{
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			SessionUID:   "abcdef",
			Scopes:       stravaExampleScopes,
		}).Return(nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/auth/login", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 302, response.Code)
		redirectURL := response.Header().Get("Location")
		assert.Contains(t, redirectURL, "https://www.strava.com/oauth/authorize")
		assert.Contains(t, redirectURL, "strava_client_id")
	})

	t.Run("Callback with error param renders error page without token exchange", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup: no expectations beyond registration, nothing outbound may happen
		_, router, _, _, _, _, _, _, renderer := setup(t, ctrl)

		// when
		request, err := http.NewRequest(http.MethodGet, "/auth/callback?error=access_denied", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), "access_denied")
		assert.Contains(t, renderer.errorMessage, "access_denied")
	})

	t.Run("Callback without code renders error page", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _, _, _, _, _ := setup(t, ctrl)

		// when
		request, err := http.NewRequest(http.MethodGet, "/auth/callback", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), "No authorization code received")
	})

	t.Run("Callback with code exchanges token and renders dashboard", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, sessionStorer, tokenVault, nower, _, oauthClient, publisher, renderer := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		sessionStorer.EXPECT().RunInTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, f func(ctx context.Context) error) error {
				return f(ctx)
			})
		oauthClient.EXPECT().GetAccessToken(gomock.Any(), oauthclient.GetTokenRequest{
			ProviderName: "strava",
			Code:         "abc123",
		}).Return(oauthclient.GetTokenResponse{
			TokenType:    "Bearer",
			ExpiresAt:    1700000000,
			AccessToken:  "tok",
			RefreshToken: "r",
			Athlete: strava.Athlete{
				ID:        42,
				Firstname: "Eliud",
				Lastname:  "Kipchoge",
			},
		}, nil)
		tokenVault.EXPECT().Put(gomock.Any(), CreateTokenUID("strava"), oauthvault.Token{
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			SessionUID:   "",
			Scopes:       stravaExampleScopes,
			CreatedAt:    mytime.ExampleTime,
			LastModified: &mytime.ExampleTime,
			AccessToken:  "tok",
			RefreshToken: "r",
			ExpiresAt:    func() *time.Time { t := time.Unix(1700000000, 0); return &t }(),
			AthleteID:    42,
			AthleteName:  "Eliud Kipchoge",
		}).Return(nil)
		publisher.EXPECT().Publish(gomock.Any(), oauthevents.TopicName, oauthevents.OAuthSessionSetupCompleted{
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			SessionUID:   "",
			AthleteID:    42,
			AthleteName:  "Eliud Kipchoge",
			Success:      true,
		}).Return(nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/auth/callback?code=abc123", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), "Eliud Kipchoge")
		assert.Equal(t, "Eliud Kipchoge", renderer.connectedWith)
	})

	t.Run("Callback with state resumes stored session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, sessionStorer, tokenVault, nower, _, oauthClient, publisher, _ := setup(t, ctrl)

		exampleResp := oauthclient.GetTokenResponse{
			TokenType:    "Bearer",
			ExpiresIn:    6 * 60 * 60,
			AccessToken:  "tok",
			RefreshToken: "r",
			Athlete: strava.Athlete{
				ID:        42,
				Firstname: "Eliud",
				Lastname:  "Kipchoge",
			},
		}

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		sessionStorer.EXPECT().RunInTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, f func(ctx context.Context) error) error {
				return f(ctx)
			})
		sessionStorer.EXPECT().Get(gomock.Any(), "abcdef").Return(OAuthSessionSetup{
			UID:          "abcdef",
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			Scopes:       stravaExampleScopes,
			ReturnURL:    "/dashboard",
			CreatedAt:    mytime.ExampleTime,
		}, true, nil)
		oauthClient.EXPECT().GetAccessToken(gomock.Any(), oauthclient.GetTokenRequest{
			ProviderName: "strava",
			Code:         "789",
		}).Return(exampleResp, nil)
		sessionStorer.EXPECT().Put(gomock.Any(), "abcdef", gomock.Any()).DoAndReturn(
			func(ctx context.Context, uid string, session OAuthSessionSetup) error {
				assert.Equal(t, "abcdef", session.UID)
				assert.True(t, session.Done)
				assert.NotNil(t, session.TokenData)
				return nil
			})
		tokenVault.EXPECT().Put(gomock.Any(), CreateTokenUID("strava"), oauthvault.Token{
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			SessionUID:   "abcdef",
			Scopes:       stravaExampleScopes,
			CreatedAt:    mytime.ExampleTime,
			LastModified: &mytime.ExampleTime,
			AccessToken:  "tok",
			RefreshToken: "r",
			ExpiresAt:    func() *time.Time { t := mytime.ExampleTime.Add(6 * 60 * 60 * time.Second); return &t }(),
			AthleteID:    42,
			AthleteName:  "Eliud Kipchoge",
		}).Return(nil)
		publisher.EXPECT().Publish(gomock.Any(), oauthevents.TopicName, oauthevents.OAuthSessionSetupCompleted{
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			SessionUID:   "abcdef",
			AthleteID:    42,
			AthleteName:  "Eliud Kipchoge",
			Success:      true,
		}).Return(nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/auth/callback?code=789&state=abcdef", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), "Eliud Kipchoge")
	})

	t.Run("Callback with failing token exchange renders error page", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, sessionStorer, _, nower, _, oauthClient, _, renderer := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		sessionStorer.EXPECT().RunInTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, f func(ctx context.Context) error) error {
				return f(ctx)
			})
		oauthClient.EXPECT().GetAccessToken(gomock.Any(), gomock.Any()).Return(oauthclient.GetTokenResponse{},
			fmt.Errorf("error getting token: 400"))

		// when
		request, err := http.NewRequest(http.MethodGet, "/auth/callback?code=expired", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, renderer.errorMessage, "Could not complete the connection")
	})

	t.Run("Refresh token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, sessionStorer, vault, nower, uuider, oauthClient, publisher, _ := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		uuider.EXPECT().Create().Return("xyz")
		sessionStorer.EXPECT().RunInTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, f func(ctx context.Context) error) error {
				return f(ctx)
			})
		vault.EXPECT().Get(gomock.Any(), CreateTokenUID("strava")).Return(oauthvault.Token{
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			SessionUID:   "abcdef",
			Scopes:       stravaExampleScopes,
			CreatedAt:    mytime.ExampleTime,
			LastModified: &mytime.ExampleTime,
			AccessToken:  "tok",
			RefreshToken: "r",
			AthleteID:    42,
			AthleteName:  "Eliud Kipchoge",
		}, true, nil)
		oauthClient.EXPECT().RefreshAccessToken(gomock.Any(), oauthclient.RefreshTokenRequest{
			ProviderName: "strava",
			RefreshToken: "r",
		}).Return(oauthclient.GetTokenResponse{
			TokenType:    "Bearer",
			ExpiresIn:    6 * 60 * 60,
			AccessToken:  "toknew",
			RefreshToken: "rnew",
		}, nil)
		vault.EXPECT().Put(gomock.Any(), CreateTokenUID("strava"), oauthvault.Token{
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			SessionUID:   "abcdef",
			Scopes:       stravaExampleScopes,
			CreatedAt:    mytime.ExampleTime,
			LastModified: &mytime.ExampleTime,
			AccessToken:  "toknew",
			RefreshToken: "rnew",
			ExpiresAt:    func() *time.Time { t := mytime.ExampleTime.Add(6 * 60 * 60 * time.Second); return &t }(),
			AthleteID:    42,
			AthleteName:  "Eliud Kipchoge",
		}).Return(nil)
		publisher.EXPECT().Publish(gomock.Any(), oauthevents.TopicName, oauthevents.OAuthTokenRefreshCompleted{
			ProviderName: "strava",
			UID:          "xyz",
			ClientID:     "strava_client_id",
			Success:      true,
		}).Return(nil)

		// when
		request, err := http.NewRequest(http.MethodPost, "/oauth/refresh", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), "Refreshed token for strava")
	})

	t.Run("Logout revokes token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, sessionStorer, vault, nower, uuider, oauthClient, publisher, _ := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		uuider.EXPECT().Create().Return("xyz")
		sessionStorer.EXPECT().RunInTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, f func(ctx context.Context) error) error {
				return f(ctx)
			})
		vault.EXPECT().Get(gomock.Any(), CreateTokenUID("strava")).Return(oauthvault.Token{
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			SessionUID:   "abcdef",
			Scopes:       stravaExampleScopes,
			CreatedAt:    mytime.ExampleTime,
			LastModified: &mytime.ExampleTime,
			AccessToken:  "tok",
			RefreshToken: "r",
			AthleteID:    42,
			AthleteName:  "Eliud Kipchoge",
		}, true, nil)
		oauthClient.EXPECT().CancelAccessToken(gomock.Any(), oauthclient.CancelTokenRequest{
			ProviderName: "strava",
			AccessToken:  "tok",
		}).Return(nil)
		vault.EXPECT().Put(gomock.Any(), CreateTokenUID("strava"), oauthvault.Token{
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			CreatedAt:    mytime.ExampleTime,
			LastModified: &mytime.ExampleTime,
		}).Return(nil)
		publisher.EXPECT().Publish(gomock.Any(), oauthevents.TopicName, oauthevents.OAuthTokenCancelCompleted{
			ProviderName: "strava",
			UID:          "xyz",
			ClientID:     "strava_client_id",
			AthleteID:    42,
		}).Return(nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/auth/logout", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 303, response.Code)
		assert.Equal(t, "/", response.Header().Get("Location"))
	})

	t.Run("Get oauth status", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, vault, _, _, _, _, _ := setup(t, ctrl)

		// given
		vault.EXPECT().Get(gomock.Any(), CreateTokenUID("strava")).Return(oauthvault.Token{
			ProviderName: "strava",
			ClientID:     "strava_client_id",
			SessionUID:   "abcdef",
			Scopes:       stravaExampleScopes,
			CreatedAt:    mytime.ExampleTime,
			LastModified: &mytime.ExampleTime,
			AccessToken:  "tok",
			RefreshToken: "r",
			AthleteID:    42,
			AthleteName:  "Eliud Kipchoge",
		}, true, nil)

		// when
		request, err := http.NewRequest(http.MethodGet, "/api/oauth/status", nil)
		assert.NoError(t, err)
		request.Host = "localhost:8888"
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		got := response.Body.String()
		assert.Contains(t, got, `"Connected": true`)
		assert.Contains(t, got, "Eliud Kipchoge")
	})
}

type fakeRenderer struct {
	connectedWith string
	errorMessage  string
}

func (f *fakeRenderer) RenderConnected(w http.ResponseWriter, athleteName string) error {
	f.connectedWith = athleteName
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<p>Connected as %s</p>", athleteName)
	return nil
}

func (f *fakeRenderer) RenderError(w http.ResponseWriter, message string) error {
	f.errorMessage = message
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<p>%s</p>", message)
	return nil
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, *mystore.MockStore[OAuthSessionSetup], *myvault.MockVaultReadWriter[oauthvault.Token], *mytime.MockNower, *myuuid.MockUUIDer, *oauthclient.MockOauthClient, *mypublisher.MockPublisher, *fakeRenderer) {
	ctx := context.TODO()
	router := mux.NewRouter()
	sessionStore := mystore.NewMockStore[OAuthSessionSetup](ctrl)
	tokenVault := myvault.NewMockVaultReadWriter[oauthvault.Token](ctrl)
	nower := mytime.NewMockNower(ctrl)
	uuider := myuuid.NewMockUUIDer(ctrl)
	oauthClient := oauthclient.NewMockOauthClient(ctrl)
	publisher := mypublisher.NewMockPublisher(ctrl)
	renderer := &fakeRenderer{}

	registry := providers.NewProviders()
	registry.Set("strava", "strava_client_id", "strava_secret", "", "")

	sut := NewService(sessionStore, tokenVault, nower, uuider, oauthClient, publisher, registry, "", renderer)

	publisher.EXPECT().CreateTopic(gomock.Any(), oauthevents.TopicName).Return(nil)

	err := sut.RegisterEndpoints(ctx, router)
	assert.NoError(t, err)

	return ctx, router, sessionStore, tokenVault, nower, uuider, oauthClient, publisher, renderer
}
