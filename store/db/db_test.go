package db

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/slackqa/internal/profile"
	"github.com/hrygo/slackqa/store"
)

type countingDriver struct {
	closed int
}

func (*countingDriver) InsertMemory(context.Context, *store.Memory) (int64, error) { return 1, nil }

func (*countingDriver) SearchMemory(context.Context, *store.FindMemory) ([]*store.Match, error) {
	return nil, nil
}

func (d *countingDriver) Close() error {
	d.closed++
	return nil
}

func TestLazyDriver_CreatesOnce(t *testing.T) {
	created := 0
	driver := &countingDriver{}
	lazy := &LazyDriver{create: func(context.Context) (store.Driver, error) {
		created++
		return driver, nil
	}}

	require.NoError(t, lazy.Close())
	assert.Equal(t, 0, created, "Close must not construct the driver")

	for i := 0; i < 3; i++ {
		_, err := lazy.InsertMemory(context.Background(), &store.Memory{})
		require.NoError(t, err)
		_, err = lazy.SearchMemory(context.Background(), &store.FindMemory{K: 1})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, created)

	require.NoError(t, lazy.Close())
	assert.Equal(t, 1, driver.closed)
}

func TestLazyDriver_RetriesFailedCreation(t *testing.T) {
	attempts := 0
	lazy := &LazyDriver{create: func(context.Context) (store.Driver, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("db down")
		}
		return &countingDriver{}, nil
	}}

	_, err := lazy.InsertMemory(context.Background(), &store.Memory{})
	require.Error(t, err)
	_, err = lazy.InsertMemory(context.Background(), &store.Memory{})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestNewDBDriver(t *testing.T) {
	p := &profile.Profile{
		DatastoreDriver:        profile.DriverSupabase,
		SupabaseURL:            "https://example.supabase.co",
		SupabaseServiceRoleKey: "key",
		SupabaseSchema:         "public",
		SupabaseTable:          "kb",
		SupabaseSearchFunction: "match_memories",
	}
	driver, err := NewDBDriver(context.Background(), p, nil)
	require.NoError(t, err)
	assert.NotNil(t, driver)

	p.DatastoreDriver = "mongo"
	_, err = NewDBDriver(context.Background(), p, nil)
	assert.Error(t, err)

	p.DatastoreDriver = profile.DriverPostgres
	_, err = NewDBDriver(context.Background(), p, nil)
	assert.Error(t, err, "postgres driver requires a DSN")
}
