package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps the snapshot as one row of the snapshots table.
type SQLiteRepository struct {
	db  *sql.DB
	key string
}

func NewSQLiteRepository(dbPath, key string) (*SQLiteRepository, error) {
	if key == "" {
		key = DefaultKey
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, key: key}, nil
}

func (r *SQLiteRepository) Load(ctx context.Context) ([]byte, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE key = ?`, r.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return []byte(data), nil
}

func (r *SQLiteRepository) Save(ctx context.Context, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		r.key, string(data))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite", "key", r.key, "bytes", len(data))
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
