package backend

import (
	"context"
	"path/filepath"
	"testing"

	"nzql/internal/config"
	"nzql/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "file", DataDir: "/tmp/x", StorageKey: "k"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != FileBackend || cfg.DataDirectory != "/tmp/x" || cfg.StorageKey != "k" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		check   func(t *testing.T, repo storage.Repository)
	}{
		{
			name:   "file",
			config: Config{Type: FileBackend, DataDirectory: dir, StorageKey: "snap"},
			check: func(t *testing.T, repo storage.Repository) {
				fr, ok := repo.(*storage.FileRepository)
				if !ok {
					t.Fatalf("got %T, want *storage.FileRepository", repo)
				}
				if fr.Path() != filepath.Join(dir, "snap.json") {
					t.Errorf("path = %q", fr.Path())
				}
			},
		},
		{
			name:   "sqlite",
			config: Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "nzql.db")},
			check: func(t *testing.T, repo storage.Repository) {
				if _, ok := repo.(*storage.SQLiteRepository); !ok {
					t.Fatalf("got %T, want *storage.SQLiteRepository", repo)
				}
			},
		},
		{
			name:   "memory",
			config: Config{Type: MemoryBackend},
			check: func(t *testing.T, repo storage.Repository) {
				if _, ok := repo.(*storage.MemoryRepository); !ok {
					t.Fatalf("got %T, want *storage.MemoryRepository", repo)
				}
			},
		},
		{name: "invalid type", config: Config{Type: "sheets"}, wantErr: true},
		{name: "file without dir", config: Config{Type: FileBackend}, wantErr: true},
		{name: "sqlite without path", config: Config{Type: SQLiteBackend}, wantErr: true},
	}

	f := NewFactory(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(context.Background(), tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			if res.Cleanup != nil {
				t.Cleanup(func() { res.Cleanup() })
			}
			tt.check(t, res.Repository)
		})
	}
}
