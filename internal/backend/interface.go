package backend

import (
	"context"

	"nzql/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the snapshot repository and optional cleanup function
type BackendResult struct {
	Repository storage.Repository
	Cleanup    CleanupFunc
}

// Factory creates repositories based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Storage key shared by every backend
	StorageKey string

	// File specific
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
