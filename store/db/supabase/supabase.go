// Package supabase implements the store driver on top of the PostgREST API
// exposed by Supabase.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/slackqa/internal/httpclient"
	"github.com/hrygo/slackqa/store"
)

const serviceName = "supabase"

// Config identifies the PostgREST endpoint and objects.
type Config struct {
	URL            string
	ServiceRoleKey string
	Schema         string
	Table          string
	SearchFunction string
}

type DB struct {
	client *http.Client
	config Config
}

// NewDB creates a driver that issues requests through client.
func NewDB(config Config, client *http.Client) (store.Driver, error) {
	if config.URL == "" || config.ServiceRoleKey == "" {
		return nil, errors.New("supabase URL and service role key are required")
	}
	if client == nil {
		client = httpclient.Shared()
	}
	config.URL = strings.TrimRight(config.URL, "/")
	return &DB{client: client, config: config}, nil
}

// Close is a no-op; the connection pool is owned by httpclient.
func (*DB) Close() error {
	return nil
}

func (d *DB) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal request to %s", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.URL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to construct request to %s", path)
	}
	req.Header.Set("apikey", d.config.ServiceRoleKey)
	req.Header.Set("Authorization", "Bearer "+d.config.ServiceRoleKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if d.config.Schema != "" {
		req.Header.Set("Content-Profile", d.config.Schema)
		req.Header.Set("Accept-Profile", d.config.Schema)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to post to %s", path)
	}
	if err := httpclient.CheckStatus(serviceName, resp); err != nil {
		httpclient.DrainAndClose(resp.Body)
		return nil, err
	}
	return resp, nil
}
