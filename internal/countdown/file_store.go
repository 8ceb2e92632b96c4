package countdown

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one file per key inside dir. The terminal client uses it the
// way the browser page used local storage.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key))
}

func (s *FileStore) Load(_ context.Context, key string) (string, bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("countdown: read state: %w", err)
	}
	return strings.TrimSpace(string(raw)), true, nil
}

// Save replaces the file atomically via a temp file and rename.
func (s *FileStore) Save(_ context.Context, key, value string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("countdown: create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".countdown-*")
	if err != nil {
		return fmt.Errorf("countdown: create temp: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("countdown: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("countdown: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("countdown: replace state: %w", err)
	}
	return nil
}
