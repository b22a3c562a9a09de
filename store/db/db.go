package db

import (
	"context"
	"net/http"
	"sync"

	"github.com/pkg/errors"

	"github.com/hrygo/slackqa/internal/profile"
	"github.com/hrygo/slackqa/store"
	"github.com/hrygo/slackqa/store/db/postgres"
	"github.com/hrygo/slackqa/store/db/supabase"
)

// NewDBDriver creates the datastore driver selected by the profile.
func NewDBDriver(ctx context.Context, p *profile.Profile, client *http.Client) (store.Driver, error) {
	switch p.DatastoreDriver {
	case profile.DriverSupabase, "":
		return supabase.NewDB(supabase.Config{
			URL:            p.SupabaseURL,
			ServiceRoleKey: p.SupabaseServiceRoleKey,
			Schema:         p.SupabaseSchema,
			Table:          p.SupabaseTable,
			SearchFunction: p.SupabaseSearchFunction,
		}, client)
	case profile.DriverPostgres:
		return postgres.NewDB(ctx, postgres.Config{
			DSN:            p.DatastoreDSN,
			Schema:         p.SupabaseSchema,
			Table:          p.SupabaseTable,
			SearchFunction: p.SupabaseSearchFunction,
		})
	default:
		return nil, errors.Errorf("unknown datastore driver %q", p.DatastoreDriver)
	}
}

// LazyDriver defers driver construction to the first call. A failed
// construction is retried on the next call.
type LazyDriver struct {
	mu     sync.Mutex
	driver store.Driver
	create func(ctx context.Context) (store.Driver, error)
}

// NewLazyDriver wraps NewDBDriver so the backend handle is created on first use.
func NewLazyDriver(p *profile.Profile, client *http.Client) *LazyDriver {
	return &LazyDriver{
		create: func(ctx context.Context) (store.Driver, error) {
			return NewDBDriver(ctx, p, client)
		},
	}
}

func (l *LazyDriver) get(ctx context.Context) (store.Driver, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.driver != nil {
		return l.driver, nil
	}
	driver, err := l.create(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create datastore driver")
	}
	l.driver = driver
	return driver, nil
}

func (l *LazyDriver) InsertMemory(ctx context.Context, m *store.Memory) (int64, error) {
	driver, err := l.get(ctx)
	if err != nil {
		return 0, err
	}
	return driver.InsertMemory(ctx, m)
}

func (l *LazyDriver) SearchMemory(ctx context.Context, find *store.FindMemory) ([]*store.Match, error) {
	driver, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return driver.SearchMemory(ctx, find)
}

// Close releases the driver if it was ever created.
func (l *LazyDriver) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.driver == nil {
		return nil
	}
	err := l.driver.Close()
	l.driver = nil
	return err
}
