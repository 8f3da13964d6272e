package activity

import (
	"fmt"
	"math"

	"github.com/runningcoach/backend/services/strava"
)

// Tolerance for matching an activity's total distance against a standard
// record distance.
const distanceTolerance = 0.02

type recordDistance struct {
	Name   string
	Meters float64
}

var recordDistances = []recordDistance{
	{Name: "1km", Meters: 1000},
	{Name: "5km", Meters: 5000},
	{Name: "10km", Meters: 10000},
	{Name: "half_marathon", Meters: 21097.5},
	{Name: "marathon", Meters: 42195},
}

// Strava names its per-activity best efforts differently than we do.
var bestEffortNames = map[string]string{
	"1k":            "1km",
	"5k":            "5km",
	"10k":           "10km",
	"Half-Marathon": "half_marathon",
	"Marathon":      "marathon",
}

// CalculatePersonalRecords derives the fastest time per standard distance.
// Best efforts (only present on detailed activities) are the accurate
// source; distances without any best effort fall back to whole activities
// whose total distance is close to the target.
func CalculatePersonalRecords(activities []strava.Activity) map[string]*PersonalRecord {
	records := map[string]*PersonalRecord{}
	for _, d := range recordDistances {
		records[d.Name] = nil
	}

	runs := []strava.Activity{}
	for _, a := range activities {
		if a.IsRun() {
			runs = append(runs, a)
		}
	}

	for _, a := range runs {
		for _, effort := range a.BestEfforts {
			distanceName, found := bestEffortNames[effort.Name]
			if !found || effort.MovingTime <= 0 {
				continue
			}

			current := records[distanceName]
			if current != nil && effort.MovingTime >= current.TimeSeconds {
				continue
			}

			records[distanceName] = &PersonalRecord{
				TimeSeconds:   effort.MovingTime,
				TimeFormatted: formatDuration(effort.MovingTime),
				Pace:          pacePerKM(effort.MovingTime, effort.Distance),
				Date:          effort.StartDateLocal.Format("2006-01-02"),
				ActivityID:    effort.ActivityID,
				ActivityName:  a.Name,
			}
		}
	}

	for _, d := range recordDistances {
		if records[d.Name] != nil {
			continue
		}

		for _, a := range runs {
			if math.Abs(a.Distance-d.Meters) > d.Meters*distanceTolerance || a.MovingTime <= 0 {
				continue
			}

			current := records[d.Name]
			if current != nil && a.MovingTime >= current.TimeSeconds {
				continue
			}

			records[d.Name] = &PersonalRecord{
				TimeSeconds:   a.MovingTime,
				TimeFormatted: formatDuration(a.MovingTime),
				Pace:          pacePerKM(a.MovingTime, a.Distance),
				Date:          a.StartDateLocal.Format("2006-01-02"),
				ActivityID:    a.ID,
				ActivityName:  a.Name,
			}
		}
	}

	return records
}

func formatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}

	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func pacePerKM(timeSeconds int, distanceMeters float64) string {
	if distanceMeters == 0 {
		return "N/A"
	}

	paceSeconds := (float64(timeSeconds) / distanceMeters) * 1000
	paceMinutes := int(paceSeconds) / 60
	paceSecs := int(paceSeconds) % 60

	return fmt.Sprintf("%d:%02d/km", paceMinutes, paceSecs)
}
