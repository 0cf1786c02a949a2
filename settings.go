package stockfolio

import "time"

// LoadSettings returns the settings saved in store, or the defaults.
func LoadSettings(store Store) (Settings, error) {
	snap, err := load(store)
	if err != nil {
		return Settings{}, err
	}
	return snap.Settings, nil
}

// SaveSettings validates and saves s, leaving the rest of the snapshot untouched.
func SaveSettings(store Store, s Settings) error {
	if s.UpdateInterval != 0 && time.Duration(s.UpdateInterval)*time.Millisecond < MinUpdateInterval {
		return invalid("updateInterval", "update interval must be at least %v", MinUpdateInterval)
	}
	return persist(store, "save settings", func(snap *Snapshot) { snap.Settings = s })
}

// MinUpdateInterval is the shortest auto-update period accepted.
const MinUpdateInterval = 10 * time.Second
