package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"turn-dispatch/models"
)

// FileSnapshotter writes the snapshot to a local JSON file. The file is
// replaced through a temp file and rename, so a crashed save leaves the
// previous snapshot intact.
type FileSnapshotter struct {
	path string
}

func NewFileSnapshotter(path string) *FileSnapshotter {
	return &FileSnapshotter{path: path}
}

func (s *FileSnapshotter) Load(_ context.Context) (*models.QueueState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot load %q: %w", s.path, err)
	}

	var state models.QueueState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("snapshot decode %q: %w", s.path, err)
	}
	return &state, nil
}

func (s *FileSnapshotter) Save(_ context.Context, state *models.QueueState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("snapshot write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("snapshot close: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("snapshot replace %q: %w", s.path, err)
	}
	return nil
}
