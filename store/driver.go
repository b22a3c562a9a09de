package store

import "context"

// Driver is the backend behind a Store.
type Driver interface {
	// InsertMemory stores m and returns the generated id.
	InsertMemory(ctx context.Context, m *Memory) (int64, error)
	// SearchMemory runs the similarity search RPC. Malformed rows are skipped.
	SearchMemory(ctx context.Context, find *FindMemory) ([]*Match, error)
	Close() error
}
