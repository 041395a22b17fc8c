package backend

import (
	"context"
	"fmt"
	"log/slog"

	"nzql/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		return f.createFileBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewFileRepository(config.DataDirectory, config.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file repository: %w", err)
	}

	f.logger.Info("Initialized file backend", "path", repo.Path())

	return &BackendResult{
		Repository: repo,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Repository: repo,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory backend, data will not survive a restart")

	return &BackendResult{
		Repository: storage.NewMemoryRepository(),
	}, nil
}
