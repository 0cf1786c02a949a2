// Package store persists portfolio snapshots, either as a JSON file or in a
// SQLite key/value table.
package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/etnz/stockfolio"
)

// Backend is a Store that holds resources.
type Backend interface {
	stockfolio.Store
	Close() error
}

// Open returns the backend for path, SQLite for ".db", ".sqlite" and
// ".sqlite3" files and JSON for anything else.
func Open(path string) (Backend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("could not open portfolio database %q: %w", path, err)
		}
		return db, nil
	}
	return NewFile(path), nil
}
