package strava

import "time"

// Athlete is the summary profile as embedded in the token response and
// returned by /athlete.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Profile   string `json:"profile"`
}

func (a Athlete) FullName() string {
	if a.Firstname == "" && a.Lastname == "" {
		return a.Username
	}
	if a.Lastname == "" {
		return a.Firstname
	}

	return a.Firstname + " " + a.Lastname
}

// Activity covers both the summary representation (activity list) and the
// detailed one (single activity): BestEfforts is only populated on the latter.
type Activity struct {
	ID                 int64        `json:"id"`
	Name               string       `json:"name"`
	Type               string       `json:"type"`
	Distance           float64      `json:"distance"`
	MovingTime         int          `json:"moving_time"`
	ElapsedTime        int          `json:"elapsed_time"`
	TotalElevationGain float64      `json:"total_elevation_gain"`
	StartDateLocal     time.Time    `json:"start_date_local"`
	AverageHeartrate   float64      `json:"average_heartrate"`
	BestEfforts        []BestEffort `json:"best_efforts,omitempty"`
}

func (a Activity) IsRun() bool {
	return a.Type == "Run"
}

// BestEffort is Strava's per-activity split over a standard distance
// (e.g. "5k", "Half-Marathon").
type BestEffort struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Distance       float64   `json:"distance"`
	MovingTime     int       `json:"moving_time"`
	ElapsedTime    int       `json:"elapsed_time"`
	StartDateLocal time.Time `json:"start_date_local"`
	ActivityID     int64     `json:"activity_id"`
}
