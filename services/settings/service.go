package settings

import (
	"context"
	"fmt"

	"github.com/runningcoach/backend/lib/myerrors"
	"github.com/runningcoach/backend/lib/mylog"
	"github.com/runningcoach/backend/lib/mypublisher"
	"github.com/runningcoach/backend/lib/mystore"
	"github.com/runningcoach/backend/services/settings/settingsevents"
)

const (
	settingsUID = "currentSettings"

	// DefaultMaxHR is used until the athlete provides a real maximum.
	DefaultMaxHR = 190
)

type service struct {
	settingsStore mystore.Store[Settings]
	logger        mylog.Logger
	publisher     mypublisher.Publisher
}

func newService(settingsStore mystore.Store[Settings], pub mypublisher.Publisher) *service {
	return &service{
		settingsStore: settingsStore,
		logger:        mylog.New("settings"),
		publisher:     pub,
	}
}

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, settingsevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", settingsevents.TopicName, err)
	}

	return nil
}

func (s *service) getSettings(c context.Context) (Settings, error) {
	settings, exists, err := s.settingsStore.Get(c, settingsUID)
	if err != nil {
		return Settings{}, myerrors.NewInternalError(fmt.Errorf("error fetching settings: %s", err))
	}
	if !exists {
		return DefaultSettings(), nil
	}

	return settings, nil
}

func (s *service) updateSettings(c context.Context, update UpdateRequest) (Settings, error) {
	s.logger.Log(c, "", mylog.SeverityInfo, "Update settings")

	updated := Settings{}
	err := s.settingsStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		settings, exists, err := s.settingsStore.Get(c, settingsUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching settings: %s", err))
		}
		if !exists {
			settings = DefaultSettings()
		}

		if update.MaxHR > 0 {
			settings.MaxHR = update.MaxHR
		}
		if update.FitnessAge > 0 {
			settings.FitnessAge = update.FitnessAge
		}
		if update.ActualAge > 0 {
			settings.ActualAge = update.ActualAge
			if update.MaxHR == 0 {
				settings.MaxHR = MaxHRFromAge(update.ActualAge)
			}
		}

		settings.HRZones = CalculateZones(settings.MaxHR)

		err = s.settingsStore.Put(c, settingsUID, settings)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing settings: %s", err))
		}

		err = s.publisher.Publish(c, settingsevents.TopicName, settingsevents.SettingsUpdated{
			MaxHR:      settings.MaxHR,
			FitnessAge: settings.FitnessAge,
			ActualAge:  settings.ActualAge,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		updated = settings

		return nil
	})
	if err != nil {
		return Settings{}, err
	}

	return updated, nil
}

func DefaultSettings() Settings {
	return Settings{
		UID:     settingsUID,
		MaxHR:   DefaultMaxHR,
		HRZones: CalculateZones(DefaultMaxHR),
	}
}

// CalculateZones derives the six training zones as percentages of the
// maximum heart rate.
func CalculateZones(maxHR int) map[string]Zone {
	pct := func(f float64) int {
		return int(float64(maxHR) * f)
	}

	return map[string]Zone{
		"zone1": {Min: pct(0.50), Max: pct(0.60), Name: "Recovery"},
		"zone2": {Min: pct(0.60), Max: pct(0.70), Name: "Aerobic"},
		"zone3": {Min: pct(0.70), Max: pct(0.80), Name: "Tempo"},
		"zone4": {Min: pct(0.80), Max: pct(0.90), Name: "Threshold"},
		"zone5": {Min: pct(0.90), Max: pct(0.95), Name: "VO2 Max"},
		"zone6": {Min: pct(0.95), Max: maxHR, Name: "Anaerobic"},
	}
}

// MaxHRFromAge is the classic age-based estimate.
func MaxHRFromAge(age int) int {
	return 220 - age
}
