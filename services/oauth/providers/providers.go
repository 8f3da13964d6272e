package providers

import "fmt"

type EndPoint struct {
	Hostname string
	Path     string
}

func (ep EndPoint) GetFullURL() string {
	return ep.Hostname + ep.Path
}

type OauthParty struct {
	ClientID       string
	Secret         string
	AuthEndpoint   EndPoint
	TokenEndpoint  EndPoint
	RevokeEndpoint EndPoint
	DefaultScopes  string
}

type OAuthProvider interface {
	All() map[string]OauthParty
	Set(providerName string, clientID string, secret string, authHostname string, tokenHostname string)
	Get(providerName string) (OauthParty, error)
}

type OAuthProviders struct {
	providers map[string]OauthParty
}

func NewProviders() *OAuthProviders {
	return &OAuthProviders{
		providers: map[string]OauthParty{
			"strava": {
				AuthEndpoint: EndPoint{
					Hostname: "https://www.strava.com",
					Path:     "/oauth/authorize",
				},
				TokenEndpoint: EndPoint{
					Hostname: "https://www.strava.com",
					Path:     "/api/v3/oauth/token",
				},
				RevokeEndpoint: EndPoint{
					Hostname: "https://www.strava.com",
					Path:     "/oauth/deauthorize",
				},
				DefaultScopes: "read,activity:read,activity:read_all,profile:read_all",
			},
		},
	}
}

func (op *OAuthProviders) All() map[string]OauthParty {
	return op.providers
}

func (op *OAuthProviders) Set(providerName string, clientID string, secret string, authHostname string, tokenHostname string) {
	provider, found := op.providers[providerName]
	if !found {
		provider = OauthParty{}
	}

	if clientID != "" {
		provider.ClientID = clientID
	}

	if secret != "" {
		provider.Secret = secret
	}

	if authHostname != "" {
		provider.AuthEndpoint.Hostname = authHostname
		provider.RevokeEndpoint.Hostname = authHostname
	}

	if tokenHostname != "" {
		provider.TokenEndpoint.Hostname = tokenHostname
	}

	op.providers[providerName] = provider
}

func (op *OAuthProviders) Get(providerName string) (OauthParty, error) {
	provider, found := op.providers[providerName]
	if !found {
		return OauthParty{}, fmt.Errorf("oauth provider with name '%s' not found", providerName)
	}

	return provider, nil
}
