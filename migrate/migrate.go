// Package migrate upgrades persisted portfolio data to the current snapshot
// layout. Migrations are an ordered list of steps, each one a pure transform
// of the JSON document from one layout version to the next.
package migrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/stockfolio"
	"github.com/google/uuid"
)

// LegacyStorageKey is the key of v1.2 data in key/value stores.
const LegacyStorageKey = "stockPortfolio_v1.2"

// Current is the layout version produced by the last step.
const Current = "1.3"

// Env provides the non deterministic inputs of a step.
type Env struct {
	Now   time.Time
	NewID func() string
}

// DefaultEnv uses the clock and random uuids.
func DefaultEnv() Env {
	return Env{Now: time.Now().UTC(), NewID: uuid.NewString}
}

// Step transforms a document of layout From into layout To.
type Step struct {
	From, To string
	Run      func(env Env, doc []byte) ([]byte, error)
}

// Steps are applied in order, starting from the detected layout.
var Steps = []Step{
	{From: "1.2", To: "1.3", Run: fromV12},
}

// Report describes a migration.
type Report struct {
	From      string // detected layout
	Applied   []string
	Accounts  int
	Stocks    int
	Dividends int
}

// Migrated reports whether any step was applied.
func (r Report) Migrated() bool { return len(r.Applied) > 0 }

// Detect returns the layout version of doc: "1.3" for documents carrying a
// 1.3.x version, "1.2" for the legacy layout without version.
func Detect(doc []byte) (string, error) {
	var probe struct {
		Version *string           `json:"version"`
		Stocks  []json.RawMessage `json:"stocks"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return "", fmt.Errorf("not a portfolio document: %w", err)
	}
	if probe.Version != nil {
		v := strings.TrimPrefix(*probe.Version, "v")
		parts := strings.SplitN(v, ".", 3)
		if len(parts) < 2 {
			return "", fmt.Errorf("invalid version %q", *probe.Version)
		}
		return parts[0] + "." + parts[1], nil
	}
	for _, s := range probe.Stocks {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(s, &fields); err == nil {
			if _, ok := fields["stockCode"]; !ok {
				return "", errors.New("stocks without version nor stockCode")
			}
		}
	}
	return "1.2", nil
}

// Apply brings doc up to date and decodes it. The result is validated.
func Apply(doc []byte) (*stockfolio.Snapshot, Report, error) {
	return ApplyEnv(DefaultEnv(), doc)
}

// ApplyEnv is Apply with an explicit environment.
func ApplyEnv(env Env, doc []byte) (*stockfolio.Snapshot, Report, error) {
	version, err := Detect(doc)
	if err != nil {
		return nil, Report{}, err
	}
	rep := Report{From: version}
	for _, s := range Steps {
		if s.From != version {
			continue
		}
		doc, err = s.Run(env, doc)
		if err != nil {
			return nil, rep, fmt.Errorf("migrate from %s to %s: %w", s.From, s.To, err)
		}
		rep.Applied = append(rep.Applied, s.From+" to "+s.To)
		version = s.To
	}
	if version != Current {
		return nil, rep, fmt.Errorf("unsupported layout version %q", rep.From)
	}

	var snap stockfolio.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, rep, fmt.Errorf("cannot decode migrated document: %w", err)
	}
	if err := Validate(&snap); err != nil {
		return nil, rep, err
	}
	rep.Accounts, rep.Stocks, rep.Dividends = len(snap.Accounts), len(snap.Holdings), len(snap.Dividends)
	return &snap, rep, nil
}

// Validate checks the structural integrity of a snapshot: required fields
// and references between records.
func Validate(s *stockfolio.Snapshot) error {
	fail := func(format string, args ...any) error {
		return &stockfolio.StorageError{Op: "validate migrated data", Err: fmt.Errorf(format, args...)}
	}
	if s.Version == "" {
		return fail("missing version")
	}
	accounts := make(map[string]bool, len(s.Accounts))
	for i, a := range s.Accounts {
		if a.ID == "" || a.Name == "" {
			return fail("account %d has no id or name", i+1)
		}
		accounts[a.ID] = true
	}
	stocks := make(map[string]bool, len(s.Holdings))
	for i, h := range s.Holdings {
		if h.ID == "" || h.Code == "" || h.Name == "" {
			return fail("stock %d is missing required fields", i+1)
		}
		if h.Shares <= 0 {
			return fail("stock %s has invalid shares %d", h.Code, h.Shares)
		}
		if h.CostPrice <= 0 {
			return fail("stock %s has invalid cost price %v", h.Code, h.CostPrice)
		}
		if !accounts[h.AccountID] {
			return fail("stock %s references unknown account %q", h.Code, h.AccountID)
		}
		stocks[h.ID] = true
	}
	for i, d := range s.Dividends {
		if d.ID == "" || d.StockID == "" {
			return fail("dividend %d is missing required fields", i+1)
		}
		if !stocks[d.StockID] {
			return fail("dividend %d references unknown stock %q", i+1, d.StockID)
		}
	}
	return nil
}
