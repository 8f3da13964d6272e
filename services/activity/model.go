package activity

import (
	"time"

	"github.com/runningcoach/backend/services/strava"
)

// ActivitySnapshot is the locally stored copy of an athlete's recent
// activities, so that dashboard views do not hit the Strava API on every
// request.
type ActivitySnapshot struct {
	UID        string
	AthleteID  int64
	Activities []strava.Activity `datastore:",noindex"`
	CachedAt   time.Time
}

type PersonalRecord struct {
	TimeSeconds   int    `json:"time_seconds"`
	TimeFormatted string `json:"time_formatted"`
	Pace          string `json:"pace"`
	Date          string `json:"date"`
	ActivityID    int64  `json:"activity_id"`
	ActivityName  string `json:"activity_name,omitempty"`
}

type WeekSummary struct {
	RunCount       int     `json:"run_count"`
	TotalDistance  float64 `json:"total_distance"`
	TotalDuration  int     `json:"total_duration"`
	TotalElevation float64 `json:"total_elevation"`
}
