package oauth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/runningcoach/backend/lib/mycontext"
	"github.com/runningcoach/backend/lib/myhttp"
	"github.com/runningcoach/backend/lib/mylog"
	"github.com/runningcoach/backend/lib/mypublisher"
	"github.com/runningcoach/backend/lib/mystore"
	"github.com/runningcoach/backend/lib/mytime"
	"github.com/runningcoach/backend/lib/myuuid"
	"github.com/runningcoach/backend/lib/myvault"
	"github.com/runningcoach/backend/services/oauth/oauthclient"
	"github.com/runningcoach/backend/services/oauth/oauthvault"
	"github.com/runningcoach/backend/services/oauth/providers"
)

// PageRenderer renders the user-facing outcome of the oauth flow. The
// dashboard service provides the html templates.
type PageRenderer interface {
	RenderConnected(w http.ResponseWriter, athleteName string) error
	RenderError(w http.ResponseWriter, message string) error
}

type webService struct {
	service *service
	views   PageRenderer
	logger  mylog.Logger
}

func NewService(sessionStore mystore.Store[OAuthSessionSetup], vault myvault.VaultReadWriter[oauthvault.Token], nower mytime.Nower, uuider myuuid.UUIDer, oauthClient oauthclient.OauthClient, pub mypublisher.Publisher, providers providers.OAuthProvider, redirectURL string, views PageRenderer) *webService {
	return &webService{
		service: newService(sessionStore, vault, nower, uuider, oauthClient, pub, providers, redirectURL),
		views:   views,
		logger:  mylog.New("oauth"),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/auth/login", s.loginPage()).Methods("GET")
	router.HandleFunc("/auth/callback", s.callbackPage()).Methods("GET")
	router.HandleFunc("/auth/logout", s.logoutPage()).Methods("GET")  // as linked from screens
	router.HandleFunc("/auth/logout", s.logoutPage()).Methods("POST")

	router.HandleFunc("/oauth/refresh", s.refreshTokenPage()).Methods("GET")  // cron support only get
	router.HandleFunc("/oauth/refresh", s.refreshTokenPage()).Methods("POST") // as used from screens

	router.HandleFunc("/api/oauth/status", s.statusPage()).Methods("GET")

	err := s.service.CreateTopics(c)
	if err != nil {
		return err
	}

	return nil
}

func (s *webService) loginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		returnURL := r.URL.Query().Get("returnURL")
		if returnURL == "" {
			returnURL = "/dashboard"
		}

		authenticationURL, err := s.service.start(c, stravaProviderName, returnURL, myhttp.HostnameWithScheme(r))
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		http.Redirect(w, r, authenticationURL, http.StatusFound)
	}
}

func (s *webService) callbackPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		// The user declined on the provider's consent screen: show what
		// happened without talking to the provider.
		errorParam := r.URL.Query().Get("error")
		if errorParam != "" {
			s.logger.Log(c, "", mylog.SeverityWarn, "Authorization denied: %s", errorParam)
			err := s.views.RenderError(w, fmt.Sprintf("Authorization denied: %s", errorParam))
			if err != nil {
				errorWriter.WriteError(c, w, 1, err)
			}
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			err := s.views.RenderError(w, "No authorization code received")
			if err != nil {
				errorWriter.WriteError(c, w, 2, err)
			}
			return
		}

		sessionUID := r.URL.Query().Get("state")

		tokenResp, err := s.service.done(c, sessionUID, code)
		if err != nil {
			s.logger.Log(c, sessionUID, mylog.SeverityWarn, "Token exchange failed: %s", err)
			err := s.views.RenderError(w, "Could not complete the connection with Strava")
			if err != nil {
				errorWriter.WriteError(c, w, 3, err)
			}
			return
		}

		err = s.views.RenderConnected(w, tokenResp.Athlete.FullName())
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}
	}
}

func (s *webService) logoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := s.service.cancelToken(c, stravaProviderName)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *webService) refreshTokenPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		token, err := s.service.refreshToken(c, stravaProviderName)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: fmt.Sprintf("Refreshed token for %s", token.ProviderName),
		})
	}
}

func (s *webService) statusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		statuses, err := s.service.getOauthStatus(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, statuses)
	}
}
