package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/stockfolio"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // pure Go driver
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLite is a key/value store in a SQLite database. The snapshot is kept
// msgpack encoded under stockfolio.StorageKey.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens, or creates, the database at path. A path starting with
// "file:" is used as is, which allows in-memory databases.
func OpenSQLite(path string) (*SQLite, error) {
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path = abs + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer, sqlite serializes them anyway
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Get returns the raw value under key, ok is false if there is none.
func (s *SQLite) Get(key string) (value []byte, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

// Put replaces the raw value under key.
func (s *SQLite) Put(key string, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// Delete removes key, it is not an error if there is none.
func (s *SQLite) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Keys returns every key, sorted.
func (s *SQLite) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to list keys: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Load decodes the snapshot, it returns nil if none has been saved.
func (s *SQLite) Load() (*stockfolio.Snapshot, error) {
	data, ok, err := s.Get(stockfolio.StorageKey)
	if err != nil || !ok {
		return nil, err
	}
	var snap stockfolio.Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	inUTC(&snap)
	return &snap, nil
}

// Save encodes and writes the snapshot.
func (s *SQLite) Save(snap *stockfolio.Snapshot) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.Put(stockfolio.StorageKey, data)
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// inUTC moves every timestamp of s to UTC, msgpack timestamps carry no location.
func inUTC(s *stockfolio.Snapshot) {
	s.Metadata.CreatedAt = s.Metadata.CreatedAt.UTC()
	s.Metadata.LastModified = s.Metadata.LastModified.UTC()
	for i := range s.Accounts {
		s.Accounts[i].CreatedAt = s.Accounts[i].CreatedAt.UTC()
	}
	for i := range s.Holdings {
		s.Holdings[i].LastUpdated = s.Holdings[i].LastUpdated.UTC()
	}
	for i := range s.Dividends {
		s.Dividends[i].CreatedAt = s.Dividends[i].CreatedAt.UTC()
	}
}
