// Package postgres implements the store driver with direct SQL access to a
// Postgres database carrying the pgvector extension.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/slackqa/store"
)

// Config identifies the database and the objects holding memories.
type Config struct {
	DSN            string
	Schema         string
	Table          string
	SearchFunction string
}

type DB struct {
	db     *sql.DB
	config Config
}

// NewDB opens a connection pool for config.DSN and verifies it is reachable.
func NewDB(ctx context.Context, config Config) (store.Driver, error) {
	if config.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db with dsn")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping db")
	}

	return &DB{db: db, config: config}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// qualified returns schema.name with both parts quoted.
func (d *DB) qualified(name string) string {
	if d.config.Schema == "" {
		return pq.QuoteIdentifier(name)
	}
	return pq.QuoteIdentifier(d.config.Schema) + "." + pq.QuoteIdentifier(name)
}
