package storage

import (
	"context"
	"errors"
)

// DefaultKey is the fixed storage key the snapshot lives under.
const DefaultKey = "nzql_finance_data_v2"

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Repository persists the encoded snapshot as a single opaque blob.
type Repository interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}
