package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/runningcoach/backend/lib/myerrors"
)

const (
	// DefaultBaseURL is Strava's v3 data API.
	DefaultBaseURL = "https://www.strava.com/api/v3"

	clientTimeout = 10 * time.Second
)

//go:generate mockgen -source=client.go -package strava -destination client_mock.go Client
type Client interface {
	GetAthlete(c context.Context, accessToken string) (Athlete, error)
	ListActivities(c context.Context, accessToken string, page int, perPage int) ([]Activity, error)
	GetActivity(c context.Context, accessToken string, activityID int64) (Activity, error)
}

type apiClient struct {
	baseURL string
}

// NewClient creates a Strava API client. An empty baseURL selects the real API.
func NewClient(baseURL string) Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &apiClient{
		baseURL: baseURL,
	}
}

func (ac apiClient) GetAthlete(c context.Context, accessToken string) (Athlete, error) {
	athlete := Athlete{}
	err := ac.get(c, accessToken, "/athlete", &athlete)
	if err != nil {
		return Athlete{}, err
	}

	return athlete, nil
}

func (ac apiClient) ListActivities(c context.Context, accessToken string, page int, perPage int) ([]Activity, error) {
	params := url.Values{
		"page":     []string{strconv.Itoa(page)},
		"per_page": []string{strconv.Itoa(perPage)},
	}

	activities := []Activity{}
	err := ac.get(c, accessToken, "/athlete/activities?"+params.Encode(), &activities)
	if err != nil {
		return nil, err
	}

	return activities, nil
}

func (ac apiClient) GetActivity(c context.Context, accessToken string, activityID int64) (Activity, error) {
	activity := Activity{}
	err := ac.get(c, accessToken, fmt.Sprintf("/activities/%d", activityID), &activity)
	if err != nil {
		return Activity{}, err
	}

	return activity, nil
}

func (ac apiClient) get(c context.Context, accessToken string, path string, target interface{}) error {
	fullURL := ac.baseURL + path

	httpReq, err := http.NewRequestWithContext(c, http.MethodGet, fullURL, nil)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error creating http request for %s: %s", fullURL, err))
	}

	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")

	httpClient := &http.Client{
		Timeout: clientTimeout,
	}
	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return myerrors.NewUnavailableError(fmt.Errorf("error calling %s: %s", fullURL, err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusUnauthorized {
		return myerrors.NewAuthenticationError(fmt.Errorf("access token rejected by %s", fullURL))
	}

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return myerrors.NewInternalError(fmt.Errorf("error calling %s: status %d: %s", fullURL, httpResp.StatusCode, body))
	}

	err = json.NewDecoder(httpResp.Body).Decode(target)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error parsing response of %s: %s", fullURL, err))
	}

	return nil
}
