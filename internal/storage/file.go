package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileRepository keeps the snapshot in <dir>/<key>.json.
type FileRepository struct {
	mu   sync.Mutex
	path string
}

func NewFileRepository(dir, key string) (*FileRepository, error) {
	if key == "" {
		key = DefaultKey
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileRepository{path: filepath.Join(dir, key+".json")}, nil
}

// Path returns the snapshot file location.
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) Load(_ context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	return data, nil
}

// Save writes to a temp file next to the target and renames it over, so a
// crash mid-write leaves the previous snapshot intact.
func (r *FileRepository) Save(_ context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp data file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

func (r *FileRepository) Close() error {
	return nil
}
