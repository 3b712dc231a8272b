// Package snapshot persists the vigilance state to disk and mirrors it to
// remote destinations.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alfredjeanlab/praevisio/internal/model"
)

// FileStore keeps one JSON file holding the full state. Every Save
// overwrites it wholesale.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore returns a store for path. Nothing is touched on disk until
// the first Save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the snapshot file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the snapshot. A missing or unparseable file reports ok=false
// so the caller starts from defaults; it never returns an error.
func (f *FileStore) Load() (state model.State, ok bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("reading snapshot failed, starting from defaults", "path", f.path, "error", err)
		}
		return model.State{}, false
	}
	if err := json.Unmarshal(data, &state); err != nil {
		f.logger.Warn("snapshot is corrupt, starting from defaults", "path", f.path, "error", err)
		return model.State{}, false
	}
	return state, true
}

// Save writes state to a temporary file next to the snapshot and renames
// it into place.
func (f *FileStore) Save(state model.State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".vigilance-*.json")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Encode renders state the way it is written to disk and to mirrors.
func Encode(state model.State) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return append(data, '\n'), nil
}
