package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/runningcoach/backend/lib/myerrors"
	"github.com/runningcoach/backend/lib/mylog"
	"github.com/runningcoach/backend/lib/mypublisher"
	"github.com/runningcoach/backend/lib/mystore"
	"github.com/runningcoach/backend/lib/mytime"
	"github.com/runningcoach/backend/lib/myuuid"
	"github.com/runningcoach/backend/lib/myvault"
	"github.com/runningcoach/backend/services/oauth/oauthclient"
	"github.com/runningcoach/backend/services/oauth/oauthevents"
	"github.com/runningcoach/backend/services/oauth/oauthvault"
	"github.com/runningcoach/backend/services/oauth/providers"
)

const stravaProviderName = "strava"

type service struct {
	sessionStore mystore.Store[OAuthSessionSetup]
	vault        myvault.VaultReadWriter[oauthvault.Token]
	nower        mytime.Nower
	uuider       myuuid.UUIDer
	logger       mylog.Logger
	oauthClient  oauthclient.OauthClient
	publisher    mypublisher.Publisher
	providers    providers.OAuthProvider
	redirectURL  string
}

func newService(sessionStore mystore.Store[OAuthSessionSetup], vault myvault.VaultReadWriter[oauthvault.Token], nower mytime.Nower, uuider myuuid.UUIDer, oauthClient oauthclient.OauthClient, pub mypublisher.Publisher, providers providers.OAuthProvider, redirectURL string) *service {
	return &service{
		sessionStore: sessionStore,
		vault:        vault,
		nower:        nower,
		uuider:       uuider,
		oauthClient:  oauthClient,
		logger:       mylog.New("oauth"),
		publisher:    pub,
		providers:    providers,
		redirectURL:  redirectURL,
	}
}

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, oauthevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", oauthevents.TopicName, err)
	}

	return nil
}

func (s *service) getOauthStatus(c context.Context) (map[string]OAuthStatus, error) {
	s.logger.Log(c, "", mylog.SeverityInfo, "Get oauth status")

	statuses := map[string]OAuthStatus{}
	for name := range s.providers.All() {
		tokenUID := CreateTokenUID(name)
		token, exists, err := s.vault.Get(c, tokenUID)
		if err != nil {
			return statuses, myerrors.NewInternalError(err)
		}

		statuses[name] = tokenToStatus(token, exists)
	}

	return statuses, nil
}

func tokenToStatus(token oauthvault.Token, exists bool) OAuthStatus {
	return OAuthStatus{
		ProviderName: token.ProviderName,
		AthleteID:    token.AthleteID,
		AthleteName:  token.AthleteName,
		Scopes:       token.Scopes,
		CreatedAt:    token.CreatedAt,
		LastModified: token.LastModified,
		ValidUntil:   token.ExpiresAt,
		Connected:    exists && token.IsUsable(),
	}
}

func (s *service) start(c context.Context, providerName string, returnURL string, currentHostname string) (string, error) {
	now := s.nower.Now()
	sessionUID := s.uuider.Create()

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Start oauth session-setup %s", sessionUID)

	provider, err := s.providers.Get(providerName)
	if err != nil {
		return "", myerrors.NewInvalidInputError(fmt.Errorf("provider with name '%s' not known", providerName))
	}

	authURL, err := s.oauthClient.ComposeAuthURL(c, oauthclient.ComposeAuthURLRequest{
		ProviderName:  providerName,
		CompletionURL: s.completionURL(currentHostname), // Be called back here when authorisation has completed
		Scope:         provider.DefaultScopes,
		State:         sessionUID,
	})
	if err != nil {
		return "", myerrors.NewInternalError(fmt.Errorf("error composing auth url: %s", err))
	}

	err = s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.sessionStore.Put(c, sessionUID, OAuthSessionSetup{
			UID:          sessionUID,
			ProviderName: providerName,
			ClientID:     provider.ClientID,
			Scopes:       provider.DefaultScopes,
			ReturnURL:    returnURL,
			CreatedAt:    now,
			LastModified: &now,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing: %s", err))
		}

		err = s.publisher.Publish(c, oauthevents.TopicName, oauthevents.OAuthSessionSetupStarted{
			ProviderName: providerName,
			ClientID:     provider.ClientID,
			SessionUID:   sessionUID,
			Scopes:       provider.DefaultScopes,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Completed first step of oauth session-setup %s", sessionUID)

	return authURL, nil
}

// done exchanges the authorization code for a token and stores it in the
// vault. The state parameter is optional: when the provider echoes one back
// it must match a known session, but an exchange with only a code is accepted.
func (s *service) done(c context.Context, sessionUID string, code string) (oauthclient.GetTokenResponse, error) {
	now := s.nower.Now()

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Continue with oauth session-setup (create-token) %s", sessionUID)

	tokenResp := oauthclient.GetTokenResponse{}
	err := s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		providerName := stravaProviderName
		session := OAuthSessionSetup{}
		sessionExists := false
		if sessionUID != "" {
			var err error
			session, sessionExists, err = s.sessionStore.Get(c, sessionUID)
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error fetching session: %s", err))
			}
			if !sessionExists {
				return myerrors.NewNotFoundError(fmt.Errorf("session with uid %s not found", sessionUID))
			}
			providerName = session.ProviderName
		}

		provider, err := s.providers.Get(providerName)
		if err != nil {
			return myerrors.NewInvalidInputError(fmt.Errorf("provider with name '%s' not known", providerName))
		}

		// Get token
		tokenResp, err = s.oauthClient.GetAccessToken(c, oauthclient.GetTokenRequest{
			ProviderName: providerName,
			Code:         code,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error getting token: %s", err))
		}

		s.logger.Log(c, sessionUID, mylog.SeverityDebug, "token-resp for athlete %s", tokenResp.Athlete.FullName())

		scopes := provider.DefaultScopes
		createdAt := now
		if sessionExists {
			scopes = session.Scopes
			createdAt = session.CreatedAt

			// Update session
			session.TokenData = &tokenResp
			session.LastModified = &now
			session.Done = true
			err = s.sessionStore.Put(c, sessionUID, session)
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error storing session: %s", err))
			}
		}

		// Store new token in vault
		err = s.vault.Put(c, CreateTokenUID(providerName), oauthvault.Token{
			ProviderName: providerName,
			ClientID:     provider.ClientID,
			SessionUID:   sessionUID,
			Scopes:       scopes,
			CreatedAt:    createdAt,
			LastModified: &now,
			AccessToken:  tokenResp.AccessToken,
			RefreshToken: tokenResp.RefreshToken,
			ExpiresAt:    calculateExpiresAt(now, tokenResp),
			AthleteID:    tokenResp.Athlete.ID,
			AthleteName:  tokenResp.Athlete.FullName(),
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing token in vault: %s", err))
		}

		err = s.publisher.Publish(c, oauthevents.TopicName, oauthevents.OAuthSessionSetupCompleted{
			ProviderName: providerName,
			ClientID:     provider.ClientID,
			SessionUID:   sessionUID,
			AthleteID:    tokenResp.Athlete.ID,
			AthleteName:  tokenResp.Athlete.FullName(),
			Success:      true,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return oauthclient.GetTokenResponse{}, err
	}

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Completed oauth session-setup (token-created) %s", sessionUID)

	return tokenResp, nil
}

func (s *service) completionURL(hostname string) string {
	if s.redirectURL != "" {
		return s.redirectURL
	}

	return fmt.Sprintf("%s/auth/callback", hostname)
}

func (s *service) refreshToken(c context.Context, providerName string) (oauthvault.Token, error) {
	now := s.nower.Now()
	uid := s.uuider.Create()

	s.logger.Log(c, "", mylog.SeverityInfo, "Start oauth token-refresh")

	newToken := oauthvault.Token{}
	err := s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		tokenUID := CreateTokenUID(providerName)
		currentToken, exists, err := s.vault.Get(c, tokenUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching token %s:%s", tokenUID, err))
		}

		if !exists || currentToken.RefreshToken == "" {
			s.logger.Log(c, "", mylog.SeverityInfo, "Cannot refresh token: no token to")
			// Do not consider this a failure
			return nil
		}

		newTokenResp, err := s.oauthClient.RefreshAccessToken(c, oauthclient.RefreshTokenRequest{
			ProviderName: currentToken.ProviderName,
			RefreshToken: currentToken.RefreshToken,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error refreshing token: %s", err))
		}

		newToken = oauthvault.Token{
			ProviderName: currentToken.ProviderName,
			ClientID:     currentToken.ClientID,
			SessionUID:   currentToken.SessionUID,
			Scopes:       currentToken.Scopes,
			CreatedAt:    currentToken.CreatedAt,
			LastModified: &now,
			AccessToken:  newTokenResp.AccessToken,
			RefreshToken: newTokenResp.RefreshToken,
			ExpiresAt:    calculateExpiresAt(now, newTokenResp),
			AthleteID:    currentToken.AthleteID,
			AthleteName:  currentToken.AthleteName,
		}
		// Update token
		err = s.vault.Put(c, CreateTokenUID(currentToken.ProviderName), newToken)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing token: %s", err))
		}

		err = s.publisher.Publish(c, oauthevents.TopicName, oauthevents.OAuthTokenRefreshCompleted{
			ProviderName: currentToken.ProviderName,
			UID:          uid,
			ClientID:     currentToken.ClientID,
			Success:      true,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return newToken, err
	}

	s.logger.Log(c, "", mylog.SeverityInfo, "Completed oauth token-refresh")

	return newToken, nil
}

// calculateExpiresAt prefers the provider's absolute epoch over the relative
// expiry.
func calculateExpiresAt(lastModified time.Time, resp oauthclient.GetTokenResponse) *time.Time {
	if resp.ExpiresAt != 0 {
		t := time.Unix(resp.ExpiresAt, 0)
		return &t
	}
	if resp.ExpiresIn == 0 {
		return nil
	}
	t := lastModified.Add(time.Second * time.Duration(resp.ExpiresIn))
	return &t
}

func (s *service) cancelToken(c context.Context, providerName string) error {
	now := s.nower.Now()
	uid := s.uuider.Create()

	s.logger.Log(c, "", mylog.SeverityInfo, "Start canceling token")

	err := s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		tokenUID := CreateTokenUID(providerName)
		currentToken, exists, err := s.vault.Get(c, tokenUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching token %s:%s", tokenUID, err))
		}

		if !exists || currentToken.AccessToken == "" {
			s.logger.Log(c, "", mylog.SeverityInfo, "Cannot cancel token: no token to")
			// Do not consider this a failure
			return nil
		}

		err = s.oauthClient.CancelAccessToken(c, oauthclient.CancelTokenRequest{
			ProviderName: currentToken.ProviderName,
			AccessToken:  currentToken.AccessToken,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error canceling token: %s", err))
		}

		// Blank out token
		err = s.vault.Put(c, CreateTokenUID(currentToken.ProviderName), oauthvault.Token{
			ProviderName: currentToken.ProviderName,
			ClientID:     currentToken.ClientID,
			CreatedAt:    currentToken.CreatedAt,
			LastModified: &now,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing token: %s", err))
		}

		err = s.publisher.Publish(c, oauthevents.TopicName, oauthevents.OAuthTokenCancelCompleted{
			ProviderName: currentToken.ProviderName,
			UID:          uid,
			ClientID:     currentToken.ClientID,
			AthleteID:    currentToken.AthleteID,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Log(c, "", mylog.SeverityInfo, "Completed oauth token-cancelation")

	return nil
}

func CreateTokenUID(providerName string) string {
	return oauthvault.CurrentToken + "_" + providerName
}
