package strava

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClient(t *testing.T) {
	c := context.TODO()

	t.Run("Get athlete", func(t *testing.T) {
		mux := http.NewServeMux()
		ts := httptest.NewServer(mux)
		defer ts.Close()

		mux.HandleFunc("/athlete", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(200)
			err := json.NewEncoder(w).Encode(Athlete{
				ID:        42,
				Username:  "eliud",
				Firstname: "Eliud",
				Lastname:  "Kipchoge",
			})
			assert.NoError(t, err)
		})

		client := NewClient(ts.URL)
		athlete, err := client.GetAthlete(c, "abc123")
		assert.NoError(t, err)
		assert.Equal(t, int64(42), athlete.ID)
		assert.Equal(t, "Eliud Kipchoge", athlete.FullName())
	})

	t.Run("List activities", func(t *testing.T) {
		mux := http.NewServeMux()
		ts := httptest.NewServer(mux)
		defer ts.Close()

		mux.HandleFunc("/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))
			assert.Equal(t, "1", r.URL.Query().Get("page"))
			assert.Equal(t, "30", r.URL.Query().Get("per_page"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(200)
			err := json.NewEncoder(w).Encode([]Activity{
				{ID: 1001, Name: "Morning Run", Type: "Run", Distance: 5012.3, MovingTime: 1500},
				{ID: 1002, Name: "Evening Ride", Type: "Ride", Distance: 20000, MovingTime: 3600},
			})
			assert.NoError(t, err)
		})

		client := NewClient(ts.URL)
		activities, err := client.ListActivities(c, "abc123", 1, 30)
		assert.NoError(t, err)
		assert.Len(t, activities, 2)
		assert.True(t, activities[0].IsRun())
		assert.False(t, activities[1].IsRun())
	})

	t.Run("Get activity with best efforts", func(t *testing.T) {
		mux := http.NewServeMux()
		ts := httptest.NewServer(mux)
		defer ts.Close()

		mux.HandleFunc("/activities/1001", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(200)
			err := json.NewEncoder(w).Encode(Activity{
				ID:         1001,
				Name:       "Morning Run",
				Type:       "Run",
				Distance:   5012.3,
				MovingTime: 1500,
				BestEfforts: []BestEffort{
					{Name: "5k", Distance: 5000, MovingTime: 1490, ActivityID: 1001},
				},
			})
			assert.NoError(t, err)
		})

		client := NewClient(ts.URL)
		activity, err := client.GetActivity(c, "abc123", 1001)
		assert.NoError(t, err)
		assert.Len(t, activity.BestEfforts, 1)
		assert.Equal(t, "5k", activity.BestEfforts[0].Name)
	})

	t.Run("Expired token is an authentication error", func(t *testing.T) {
		mux := http.NewServeMux()
		ts := httptest.NewServer(mux)
		defer ts.Close()

		mux.HandleFunc("/athlete", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(401)
		})

		client := NewClient(ts.URL)
		_, err := client.GetAthlete(c, "expired")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status: 403")
	})

	t.Run("Malformed response body is an error", func(t *testing.T) {
		mux := http.NewServeMux()
		ts := httptest.NewServer(mux)
		defer ts.Close()

		mux.HandleFunc("/athlete", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(200)
			w.Write([]byte("this is not json"))
		})

		client := NewClient(ts.URL)
		_, err := client.GetAthlete(c, "abc123")
		assert.Error(t, err)
	})
}
