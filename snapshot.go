package stockfolio

import (
	"encoding/json"
	"sync"
	"time"
)

// SnapshotVersion is the version written in every saved snapshot.
const SnapshotVersion = "1.3.0"

// StorageKey is the key under which key/value stores keep the snapshot.
const StorageKey = "stockPortfolio_v1.3"

// DefaultUpdateInterval is the default auto-update period, in milliseconds.
const DefaultUpdateInterval = 300000

// Snapshot is everything that is persisted about a portfolio.
type Snapshot struct {
	Version   string     `json:"version" msgpack:"version"`
	Accounts  []Account  `json:"accounts" msgpack:"accounts"`
	Holdings  []Holding  `json:"stocks" msgpack:"stocks"`
	Dividends []Dividend `json:"dividends" msgpack:"dividends"`
	Settings  Settings   `json:"settings" msgpack:"settings"`
	Metadata  Metadata   `json:"metadata" msgpack:"metadata"`
}

// UnmarshalJSON applies the default settings when the document has none.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	p := plain{Settings: DefaultSettings()}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Snapshot(p)
	return nil
}

// Settings are user preferences persisted along the data.
type Settings struct {
	PrivacyMode       bool  `json:"privacyMode" msgpack:"privacyMode"`
	DarkMode          bool  `json:"darkMode" msgpack:"darkMode"`
	AutoUpdate        bool  `json:"autoUpdate" msgpack:"autoUpdate"`
	UpdateInterval    int64 `json:"updateInterval" msgpack:"updateInterval"` // milliseconds
	ClampAdjustedCost bool  `json:"clampAdjustedCost" msgpack:"clampAdjustedCost"`
}

// DefaultSettings are the settings of a new portfolio.
func DefaultSettings() Settings {
	return Settings{AutoUpdate: true, UpdateInterval: DefaultUpdateInterval, ClampAdjustedCost: true}
}

// UnmarshalJSON keeps the clamp on when the document does not mention it.
// Documents written before the setting existed never do.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type plain Settings
	p := plain{ClampAdjustedCost: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Settings(p)
	return nil
}

// Interval returns UpdateInterval as a duration, falling back to the default.
func (s Settings) Interval() time.Duration {
	if s.UpdateInterval <= 0 {
		return DefaultUpdateInterval * time.Millisecond
	}
	return time.Duration(s.UpdateInterval) * time.Millisecond
}

// Metadata records the snapshot history.
type Metadata struct {
	CreatedAt    time.Time `json:"createdAt" msgpack:"createdAt"`
	LastModified time.Time `json:"lastModified" msgpack:"lastModified"`
	MigratedFrom string    `json:"migratedFrom,omitempty" msgpack:"migratedFrom,omitempty"`
}

// NewSnapshot returns an empty snapshot with default settings.
func NewSnapshot() *Snapshot {
	now := time.Now().UTC()
	return &Snapshot{
		Version:   SnapshotVersion,
		Accounts:  []Account{},
		Holdings:  []Holding{},
		Dividends: []Dividend{},
		Settings:  DefaultSettings(),
		Metadata: Metadata{CreatedAt: now, LastModified: now},
	}
}

// Store persists a snapshot. Load returns a nil snapshot and no error when
// nothing has been saved yet.
type Store interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// load reads the current snapshot, or a new one if the store is empty.
func load(store Store) (*Snapshot, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, &StorageError{Op: "load portfolio", Err: err}
	}
	if snap == nil {
		snap = NewSnapshot()
	}
	return snap, nil
}

// persist reads the current snapshot, lets update replace its own part and saves it back.
func persist(store Store, op string, update func(*Snapshot)) error {
	snap, err := load(store)
	if err != nil {
		return err
	}
	update(snap)
	snap.Metadata.LastModified = time.Now().UTC()
	if err := store.Save(snap); err != nil {
		return &StorageError{Op: op, Err: err}
	}
	return nil
}

// MemoryStore is a Store that keeps the snapshot in memory. The zero value is ready to use.
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
	// Fail, when set, is returned by every Save.
	Fail error
}

func (m *MemoryStore) Load() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	return clone(m.snap), nil
}

func (m *MemoryStore) Save(s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.snap = clone(s)
	return nil
}

// clone returns a copy of s that shares no slice with it.
func clone(s *Snapshot) *Snapshot {
	c := *s
	c.Accounts = append([]Account{}, s.Accounts...)
	c.Holdings = append([]Holding{}, s.Holdings...)
	c.Dividends = append([]Dividend{}, s.Dividends...)
	return &c
}
