package oauthvault

import "time"

const (
	CurrentToken = "currentToken"
)

// Token is the single stored provider credential, including the minimal
// athlete identity that came back with the token exchange.
type Token struct {
	ProviderName string
	ClientID     string
	SessionUID   string
	Scopes       string
	CreatedAt    time.Time
	LastModified *time.Time
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	AthleteID    int64
	AthleteName  string
}

func (t Token) IsUsable() bool {
	return t.AccessToken != ""
}
