package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRepositories(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		open func(t *testing.T) Repository
	}{
		{"memory", func(t *testing.T) Repository { return NewMemoryRepository() }},
		{"file", func(t *testing.T) Repository {
			repo, err := NewFileRepository(filepath.Join(t.TempDir(), "data"), "")
			if err != nil {
				t.Fatalf("NewFileRepository: %v", err)
			}
			return repo
		}},
		{"sqlite", func(t *testing.T) Repository {
			repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "nzql.db"), "")
			if err != nil {
				t.Fatalf("NewSQLiteRepository: %v", err)
			}
			return repo
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := tt.open(t)
			defer repo.Close()

			if _, err := repo.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
				t.Fatalf("empty Load err = %v, want ErrNoSnapshot", err)
			}

			for _, payload := range []string{`{"budget":1}`, `{"budget":2}`} {
				if err := repo.Save(ctx, []byte(payload)); err != nil {
					t.Fatalf("Save: %v", err)
				}
				got, err := repo.Load(ctx)
				if err != nil {
					t.Fatalf("Load: %v", err)
				}
				if string(got) != payload {
					t.Errorf("Load = %s, want %s", got, payload)
				}
			}
		})
	}
}

func TestFileRepositoryPathAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepository(dir, "custom")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "custom.json"); repo.Path() != want {
		t.Fatalf("Path = %s, want %s", repo.Path(), want)
	}
	if err := repo.Save(context.Background(), []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(repo.Path() + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestSQLiteRepositoryReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nzql.db")

	repo, err := NewSQLiteRepository(path, "k")
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, []byte(`{"budget":7}`)); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	// Migrations run again on reopen and must leave the data alone.
	repo, err = NewSQLiteRepository(path, "k")
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()
	got, err := repo.Load(ctx)
	if err != nil || string(got) != `{"budget":7}` {
		t.Fatalf("Load after reopen = %s, %v", got, err)
	}

	other, err := NewSQLiteRepository(path, "other")
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if _, err := other.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("different key must not see the snapshot, err = %v", err)
	}
}

func TestMemoryRepositoryFailWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepositoryWith([]byte(`{"budget":3}`))
	boom := errors.New("disk full")
	repo.FailWrites(boom)

	if err := repo.Save(ctx, []byte(`{"budget":4}`)); !errors.Is(err, boom) {
		t.Fatalf("Save err = %v, want %v", err, boom)
	}
	got, _ := repo.Load(ctx)
	if string(got) != `{"budget":3}` {
		t.Errorf("failed write changed data: %s", got)
	}

	repo.FailWrites(nil)
	if err := repo.Save(ctx, []byte(`{"budget":4}`)); err != nil {
		t.Fatal(err)
	}
	if repo.Saves() != 1 {
		t.Errorf("Saves = %d, want 1", repo.Saves())
	}
}
