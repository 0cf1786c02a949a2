package quote

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed names.yaml
var namesYAML []byte

// Entry is a known security.
type Entry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Names is a read-only table of display names. It may be stale and is never
// used as a price source.
type Names struct {
	byCode map[string]Entry
}

// ParseNames reads a YAML list of entries.
func ParseNames(data []byte) (*Names, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("cannot parse name table: %w", err)
	}
	n := &Names{byCode: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		n.byCode[e.Code] = e
	}
	return n, nil
}

// DefaultNames returns the embedded name table.
func DefaultNames() *Names {
	n, err := ParseNames(namesYAML)
	if err != nil {
		panic(err) // embedded, checked by tests
	}
	return n
}

// Lookup returns the entry for code, if any.
func (n *Names) Lookup(code string) (Entry, bool) {
	if n == nil {
		return Entry{}, false
	}
	e, ok := n.byCode[code]
	return e, ok
}

// Len returns the number of entries.
func (n *Names) Len() int { return len(n.byCode) }
