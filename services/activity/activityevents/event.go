package activityevents

import "strconv"

const (
	TopicName                 = "activity"
	activitySyncCompletedName = TopicName + ".sync.completed"
)

type ActivitySyncCompleted struct {
	AthleteID     int64
	AthleteName   string
	ActivityCount int
	RunCount      int
}

func (e ActivitySyncCompleted) GetEventTypeName() string {
	return activitySyncCompletedName
}

func (e ActivitySyncCompleted) GetAggregateName() string {
	return strconv.FormatInt(e.AthleteID, 10)
}
