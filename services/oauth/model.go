package oauth

import (
	"time"

	"github.com/runningcoach/backend/services/oauth/oauthclient"
)

type OAuthSessionSetup struct {
	UID          string
	ProviderName string
	ClientID     string
	Scopes       string
	ReturnURL    string
	CreatedAt    time.Time
	LastModified *time.Time
	TokenData    *oauthclient.GetTokenResponse `datastore:",noindex"`
	Done         bool
}

type OAuthStatus struct {
	ProviderName string
	AthleteID    int64
	AthleteName  string
	Scopes       string
	CreatedAt    time.Time
	LastModified *time.Time
	ValidUntil   *time.Time
	Connected    bool
}
