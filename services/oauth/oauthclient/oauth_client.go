package oauthclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/runningcoach/backend/services/oauth/providers"
	"github.com/runningcoach/backend/services/strava"
)

type ComposeAuthURLRequest struct {
	ProviderName  string
	CompletionURL string
	Scope         string
	State         string
}

type GetTokenRequest struct {
	ProviderName string
	Code         string
}

type RefreshTokenRequest struct {
	ProviderName string `json:"-"`
	RefreshToken string `json:"refresh_token"`
}

type CancelTokenRequest struct {
	ProviderName string `json:"-"`
	AccessToken  string `json:"access_token"`
}

// GetTokenResponse is the provider's token-endpoint reply. Strava reports
// both a relative expiry and an absolute epoch, and embeds the athlete's
// summary profile.
type GetTokenResponse struct {
	TokenType    string         `json:"token_type"`
	ExpiresIn    int            `json:"expires_in"`
	ExpiresAt    int64          `json:"expires_at"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Athlete      strava.Athlete `json:"athlete"`
}

//go:generate mockgen -source=oauth_client.go -package oauthclient -destination oauth_client_mock.go OauthClient
type OauthClient interface {
	ComposeAuthURL(c context.Context, req ComposeAuthURLRequest) (string, error)
	GetAccessToken(c context.Context, req GetTokenRequest) (GetTokenResponse, error)
	RefreshAccessToken(c context.Context, req RefreshTokenRequest) (GetTokenResponse, error)
	CancelAccessToken(c context.Context, req CancelTokenRequest) error
}

type oauthClient struct {
	providers providers.OAuthProvider
}

func NewOAuthClient(providers providers.OAuthProvider) *oauthClient {
	return &oauthClient{
		providers: providers,
	}
}

func (oc oauthClient) ComposeAuthURL(c context.Context, req ComposeAuthURLRequest) (string, error) {
	provider, err := oc.providers.Get(req.ProviderName)
	if err != nil {
		return "", fmt.Errorf("provider with name '%s' not known", req.ProviderName)
	}

	u, err := url.Parse(provider.AuthEndpoint.GetFullURL())
	if err != nil {
		return "", err
	}

	/*  Example:
	https://www.strava.com/oauth/authorize
		?approval_prompt=auto
		&client_id=12345
		&redirect_uri=http%3A%2F%2Flocalhost%3A8080%2Fauth%2Fcallback
		&response_type=code
		&scope=read%2Cactivity%3Aread
		&state=892f0b86-daca-4272-89e7-1a0d49a3ad71
	*/
	u.RawQuery = url.Values{
		"approval_prompt": []string{"auto"},
		"client_id":       []string{provider.ClientID},
		"redirect_uri":    []string{req.CompletionURL},
		"response_type":   []string{"code"},
		"scope":           []string{req.Scope},
		"state":           []string{req.State},
	}.Encode()

	return u.String(), nil
}

func (oc oauthClient) GetAccessToken(c context.Context, req GetTokenRequest) (GetTokenResponse, error) {
	provider, err := oc.providers.Get(req.ProviderName)
	if err != nil {
		return GetTokenResponse{}, fmt.Errorf("provider with name '%s' not known", req.ProviderName)
	}

	requestBody := url.Values{
		"client_id":     {provider.ClientID},
		"client_secret": {provider.Secret},
		"code":          {req.Code},
		"grant_type":    {"authorization_code"},
	}.Encode()

	httpRespCode, respBody, err := newHTTPClient().Send(c, http.MethodPost, provider.TokenEndpoint.GetFullURL(), []byte(requestBody))
	if err != nil {
		return GetTokenResponse{}, fmt.Errorf("error getting token: %s", err)
	}

	if httpRespCode != 200 {
		return GetTokenResponse{}, fmt.Errorf("error getting token: %d", httpRespCode)
	}

	resp := GetTokenResponse{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return GetTokenResponse{}, fmt.Errorf("error parsing response: %s", err)
	}

	return resp, nil
}

func (oc oauthClient) RefreshAccessToken(c context.Context, req RefreshTokenRequest) (GetTokenResponse, error) {
	provider, err := oc.providers.Get(req.ProviderName)
	if err != nil {
		return GetTokenResponse{}, fmt.Errorf("provider with name '%s' not known", req.ProviderName)
	}

	requestBody := url.Values{
		"client_id":     {provider.ClientID},
		"client_secret": {provider.Secret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {req.RefreshToken},
	}.Encode()

	httpRespCode, respBody, err := newHTTPClient().Send(c, http.MethodPost, provider.TokenEndpoint.GetFullURL(), []byte(requestBody))
	if err != nil {
		return GetTokenResponse{}, fmt.Errorf("error getting refresh-token: %s", err)
	}

	if httpRespCode != 200 {
		return GetTokenResponse{}, fmt.Errorf("error getting refresh-token: %d", httpRespCode)
	}

	resp := GetTokenResponse{}
	err = json.Unmarshal(respBody, &resp)
	if err != nil {
		return GetTokenResponse{}, fmt.Errorf("error parsing response: %s", err)
	}

	return resp, nil
}

func (oc oauthClient) CancelAccessToken(c context.Context, req CancelTokenRequest) error {
	provider, err := oc.providers.Get(req.ProviderName)
	if err != nil {
		return fmt.Errorf("provider with name '%s' not known", req.ProviderName)
	}

	requestBody := url.Values{
		"access_token": {req.AccessToken},
	}.Encode()

	httpRespCode, _, err := newHTTPClient().Send(c, http.MethodPost, provider.RevokeEndpoint.GetFullURL(), []byte(requestBody))
	if err != nil {
		return fmt.Errorf("error revoking token: %s", err)
	}

	if httpRespCode != 200 {
		return fmt.Errorf("error revoking token: %d", httpRespCode)
	}

	return nil
}
