package settingsevents

const (
	TopicName           = "settings"
	settingsUpdatedName = TopicName + ".updated"
)

type SettingsUpdated struct {
	MaxHR      int
	FitnessAge int
	ActualAge  int
}

func (e SettingsUpdated) GetEventTypeName() string {
	return settingsUpdatedName
}

func (e SettingsUpdated) GetAggregateName() string {
	return "settings"
}
