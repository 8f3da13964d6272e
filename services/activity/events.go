package activity

import (
	"context"
	"fmt"

	"github.com/runningcoach/backend/lib/myhttp"
	"github.com/runningcoach/backend/lib/mylog"
	"github.com/runningcoach/backend/services/oauth/oauthevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.pubsub.CreateTopic(c, oauthevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", oauthevents.TopicName, err)
	}

	err = s.pubsub.Subscribe(c, oauthevents.TopicName, myhttp.GuessHostnameWithScheme()+"/api/activity/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", oauthevents.TopicName, err)
	}

	return nil
}

func (s *service) OnOAuthSessionSetupStarted(c context.Context, topic string, event oauthevents.OAuthSessionSetupStarted) error {
	return nil
}

// OnOAuthSessionSetupCompleted warms the activity snapshot as soon as the
// athlete has connected.
func (s *service) OnOAuthSessionSetupCompleted(c context.Context, topic string, event oauthevents.OAuthSessionSetupCompleted) error {
	s.logger.Log(c, event.SessionUID, mylog.SeverityInfo, "Webhook: oauth session %s completed for athlete %s", event.SessionUID, event.AthleteName)

	if !event.Success {
		return nil
	}

	_, err := s.sync(c)
	if err != nil {
		return err
	}

	return nil
}

func (s *service) OnOAuthTokenRefreshCompleted(c context.Context, topic string, event oauthevents.OAuthTokenRefreshCompleted) error {
	return nil
}

// OnOAuthTokenCancelCompleted drops the stored activities: without a token
// the athlete has disconnected and stale data should not linger.
func (s *service) OnOAuthTokenCancelCompleted(c context.Context, topic string, event oauthevents.OAuthTokenCancelCompleted) error {
	s.logger.Log(c, "", mylog.SeverityInfo, "Webhook: token canceled for athlete %d", event.AthleteID)

	err := s.snapshotStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		return s.snapshotStore.Put(c, snapshotUID, ActivitySnapshot{UID: snapshotUID})
	})
	if err != nil {
		return err
	}

	return nil
}
