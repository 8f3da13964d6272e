package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/runningcoach/backend/lib/myerrors"
	"github.com/runningcoach/backend/lib/mylog"
	"github.com/runningcoach/backend/lib/mypublisher"
	"github.com/runningcoach/backend/lib/mypubsub"
	"github.com/runningcoach/backend/lib/mystore"
	"github.com/runningcoach/backend/lib/mytime"
	"github.com/runningcoach/backend/lib/myvault"
	"github.com/runningcoach/backend/services/activity/activityevents"
	"github.com/runningcoach/backend/services/oauth"
	"github.com/runningcoach/backend/services/oauth/oauthvault"
	"github.com/runningcoach/backend/services/strava"
)

const (
	stravaProviderName = "strava"

	// snapshotUID keys the single stored snapshot: one athlete per deployment.
	snapshotUID = "currentSnapshot"

	cacheMaxAge = 24 * time.Hour

	activityPageSize = 30

	// Only the most recent runs are fetched in detail to keep the number of
	// Strava API calls per sync bounded.
	detailFetchCount = 5
)

type service struct {
	snapshotStore mystore.Store[ActivitySnapshot]
	vault         myvault.VaultReader[oauthvault.Token]
	stravaClient  strava.Client
	nower         mytime.Nower
	logger        mylog.Logger
	pubsub        mypubsub.PubSub
	publisher     mypublisher.Publisher
}

func newService(snapshotStore mystore.Store[ActivitySnapshot], vault myvault.VaultReader[oauthvault.Token], stravaClient strava.Client, nower mytime.Nower, pubsub mypubsub.PubSub, pub mypublisher.Publisher) *service {
	return &service{
		snapshotStore: snapshotStore,
		vault:         vault,
		stravaClient:  stravaClient,
		nower:         nower,
		logger:        mylog.New("activity"),
		pubsub:        pubsub,
		publisher:     pub,
	}
}

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, activityevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", activityevents.TopicName, err)
	}

	return nil
}

// sync fetches the athlete's recent activities from Strava and stores them
// as a snapshot. The most recent runs are re-fetched individually because
// best efforts are absent from the listing.
func (s *service) sync(c context.Context) (ActivitySnapshot, error) {
	now := s.nower.Now()

	s.logger.Log(c, "", mylog.SeverityInfo, "Start activity sync")

	token, exists, err := s.vault.Get(c, oauth.CreateTokenUID(stravaProviderName))
	if err != nil {
		return ActivitySnapshot{}, myerrors.NewInternalError(fmt.Errorf("error fetching token: %s", err))
	}
	if !exists || !token.IsUsable() {
		return ActivitySnapshot{}, myerrors.NewAuthenticationError(fmt.Errorf("not connected with strava"))
	}

	activities, err := s.stravaClient.ListActivities(c, token.AccessToken, 1, activityPageSize)
	if err != nil {
		return ActivitySnapshot{}, err
	}

	detailsFetched := 0
	for i, a := range activities {
		if detailsFetched >= detailFetchCount {
			break
		}
		if !a.IsRun() {
			continue
		}

		detailed, err := s.stravaClient.GetActivity(c, token.AccessToken, a.ID)
		if err != nil {
			// A failed detail fetch degrades the records, not the sync
			s.logger.Log(c, "", mylog.SeverityWarn, "Error fetching detail of activity %d: %s", a.ID, err)
			continue
		}

		activities[i] = detailed
		detailsFetched++
	}

	runCount := 0
	for _, a := range activities {
		if a.IsRun() {
			runCount++
		}
	}

	snapshot := ActivitySnapshot{
		UID:        snapshotUID,
		AthleteID:  token.AthleteID,
		Activities: activities,
		CachedAt:   now,
	}

	err = s.snapshotStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.snapshotStore.Put(c, snapshotUID, snapshot)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing snapshot: %s", err))
		}

		err = s.publisher.Publish(c, activityevents.TopicName, activityevents.ActivitySyncCompleted{
			AthleteID:     token.AthleteID,
			AthleteName:   token.AthleteName,
			ActivityCount: len(activities),
			RunCount:      runCount,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return ActivitySnapshot{}, err
	}

	s.logger.Log(c, "", mylog.SeverityInfo, "Completed activity sync: %d activities (%d runs)", len(activities), runCount)

	return snapshot, nil
}

// recentActivities returns the stored snapshot, transparently syncing when
// there is none yet or when it has gone stale.
func (s *service) recentActivities(c context.Context) (ActivitySnapshot, error) {
	now := s.nower.Now()

	snapshot, exists, err := s.snapshotStore.Get(c, snapshotUID)
	if err != nil {
		return ActivitySnapshot{}, myerrors.NewInternalError(fmt.Errorf("error fetching snapshot: %s", err))
	}

	if exists && now.Sub(snapshot.CachedAt) <= cacheMaxAge {
		return snapshot, nil
	}

	return s.sync(c)
}

func (s *service) personalRecords(c context.Context) (map[string]*PersonalRecord, error) {
	snapshot, err := s.recentActivities(c)
	if err != nil {
		return nil, err
	}

	return CalculatePersonalRecords(snapshot.Activities), nil
}

func (s *service) weeklySummary(c context.Context) (WeekSummary, error) {
	now := s.nower.Now()

	snapshot, err := s.recentActivities(c)
	if err != nil {
		return WeekSummary{}, err
	}

	weekAgo := now.AddDate(0, 0, -7)

	summary := WeekSummary{}
	for _, a := range snapshot.Activities {
		if !a.IsRun() || a.StartDateLocal.Before(weekAgo) {
			continue
		}

		summary.RunCount++
		summary.TotalDistance += a.Distance
		summary.TotalDuration += a.MovingTime
		summary.TotalElevation += a.TotalElevationGain
	}

	return summary, nil
}
