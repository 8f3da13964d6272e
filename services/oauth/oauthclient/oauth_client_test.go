package oauthclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/runningcoach/backend/services/oauth/providers"
	"github.com/runningcoach/backend/services/strava"
)

func TestOAuthClient(t *testing.T) {
	c := context.TODO()

	t.Run("Compose auth url", func(t *testing.T) {
		registry := providers.NewProviders()
		registry.Set("strava", "12345", "verysecret", "", "")

		client := NewOAuthClient(registry)
		url, err := client.ComposeAuthURL(c, ComposeAuthURLRequest{
			ProviderName:  "strava",
			CompletionURL: "http://localhost:8080/auth/callback",
			Scope:         "read,activity:read",
			State:         "abcdef",
		})
		assert.NoError(t, err)
		assert.Equal(t, "https://www.strava.com/oauth/authorize?approval_prompt=auto&client_id=12345&redirect_uri=http%3A%2F%2Flocalhost%3A8080%2Fauth%2Fcallback&response_type=code&scope=read%2Cactivity%3Aread&state=abcdef", url)
	})

	t.Run("Get access token", func(t *testing.T) {
		mux := http.NewServeMux()
		ts := httptest.NewServer(mux)
		defer ts.Close()

		exampleResp := GetTokenResponse{
			TokenType:    "Bearer",
			ExpiresIn:    21600,
			ExpiresAt:    1700000000,
			AccessToken:  "abc123",
			RefreshToken: "rst456",
			Athlete: strava.Athlete{
				ID:        42,
				Firstname: "Eliud",
				Lastname:  "Kipchoge",
			},
		}
		mux.HandleFunc("/api/v3/oauth/token", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

			err := r.ParseForm()
			assert.NoError(t, err)

			assert.Equal(t, "12345", r.Form.Get("client_id"))
			assert.Equal(t, "verysecret", r.Form.Get("client_secret"))
			assert.Equal(t, "mycode", r.Form.Get("code"))
			assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(200)
			err = json.NewEncoder(w).Encode(exampleResp)
			assert.NoError(t, err)
		})

		registry := providers.NewProviders()
		registry.Set("strava", "12345", "verysecret", ts.URL, ts.URL)

		client := NewOAuthClient(registry)
		resp, err := client.GetAccessToken(c, GetTokenRequest{
			ProviderName: "strava",
			Code:         "mycode",
		})
		assert.NoError(t, err)
		assert.Equal(t, exampleResp, resp)
	})

	t.Run("Get access token: provider error", func(t *testing.T) {
		mux := http.NewServeMux()
		ts := httptest.NewServer(mux)
		defer ts.Close()

		mux.HandleFunc("/api/v3/oauth/token", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(400)
		})

		registry := providers.NewProviders()
		registry.Set("strava", "12345", "verysecret", ts.URL, ts.URL)

		client := NewOAuthClient(registry)
		_, err := client.GetAccessToken(c, GetTokenRequest{
			ProviderName: "strava",
			Code:         "expiredcode",
		})
		assert.Error(t, err)
	})

	t.Run("Get access token: malformed body", func(t *testing.T) {
		mux := http.NewServeMux()
		ts := httptest.NewServer(mux)
		defer ts.Close()

		mux.HandleFunc("/api/v3/oauth/token", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(200)
			w.Write([]byte("not json at all"))
		})

		registry := providers.NewProviders()
		registry.Set("strava", "12345", "verysecret", ts.URL, ts.URL)

		client := NewOAuthClient(registry)
		_, err := client.GetAccessToken(c, GetTokenRequest{
			ProviderName: "strava",
			Code:         "mycode",
		})
		assert.Error(t, err)
	})

	t.Run("Refresh access token", func(t *testing.T) {
		mux := http.NewServeMux()
		ts := httptest.NewServer(mux)
		defer ts.Close()

		exampleResp := GetTokenResponse{
			TokenType:    "Bearer",
			ExpiresIn:    21600,
			ExpiresAt:    1700021600,
			AccessToken:  "newabc123",
			RefreshToken: "newrst456",
		}
		mux.HandleFunc("/api/v3/oauth/token", func(w http.ResponseWriter, r *http.Request) {
			err := r.ParseForm()
			assert.NoError(t, err)

			assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
			assert.Equal(t, "r999", r.Form.Get("refresh_token"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(200)
			err = json.NewEncoder(w).Encode(exampleResp)
			assert.NoError(t, err)
		})

		registry := providers.NewProviders()
		registry.Set("strava", "12345", "verysecret", ts.URL, ts.URL)

		client := NewOAuthClient(registry)
		resp, err := client.RefreshAccessToken(c, RefreshTokenRequest{
			ProviderName: "strava",
			RefreshToken: "r999",
		})
		assert.NoError(t, err)
		assert.Equal(t, exampleResp, resp)
	})

	t.Run("Cancel access token", func(t *testing.T) {
		mux := http.NewServeMux()
		ts := httptest.NewServer(mux)
		defer ts.Close()

		mux.HandleFunc("/oauth/deauthorize", func(w http.ResponseWriter, r *http.Request) {
			err := r.ParseForm()
			assert.NoError(t, err)

			assert.Equal(t, "abc123", r.Form.Get("access_token"))

			w.WriteHeader(200)
		})

		registry := providers.NewProviders()
		registry.Set("strava", "12345", "verysecret", ts.URL, ts.URL)

		client := NewOAuthClient(registry)
		err := client.CancelAccessToken(c, CancelTokenRequest{
			ProviderName: "strava",
			AccessToken:  "abc123",
		})
		assert.NoError(t, err)
	})
}
