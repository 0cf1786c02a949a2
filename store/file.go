package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/etnz/stockfolio"
)

// File stores the snapshot as an indented JSON document.
type File struct {
	Path string
	mu   sync.Mutex
}

// NewFile returns a File store at path. The file is created on first save.
func NewFile(path string) *File { return &File{Path: path} }

// Load decodes the snapshot, it returns nil if the file does not exist yet.
func (f *File) Load() (*stockfolio.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read portfolio file %q: %w", f.Path, err)
	}
	var snap stockfolio.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("could not decode portfolio file %q: %w", f.Path, err)
	}
	return &snap, nil
}

// Save writes the snapshot next to the file and renames it over, so that
// readers never see a partial document.
func (f *File) Save(snap *stockfolio.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode portfolio: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create directory for %q: %w", f.Path, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary file for %q: %w", f.Path, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not write %q: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("could not replace %q: %w", f.Path, err)
	}
	return nil
}

// Close does nothing.
func (f *File) Close() error { return nil }
