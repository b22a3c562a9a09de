package supabase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/slackqa/internal/httpclient"
	"github.com/hrygo/slackqa/internal/strutil"
	"github.com/hrygo/slackqa/store"
)

// maxLoggedPayload bounds, in runes, how much of an unexpected RPC body is logged.
const maxLoggedPayload = 512

type memoryRow struct {
	Channel   string     `json:"channel"`
	Question  string     `json:"q_text"`
	Answer    string     `json:"a_text"`
	SourceURL *string    `json:"source_url"`
	Timestamp *time.Time `json:"ts"`
	Embedding []float32  `json:"embedding"`
}

type insertedRow struct {
	ID *json.Number `json:"id"`
}

// InsertMemory inserts a row into the memory table and returns its id.
func (d *DB) InsertMemory(ctx context.Context, m *store.Memory) (int64, error) {
	row := memoryRow{
		Channel:   m.Channel,
		Question:  m.Question,
		Answer:    m.Answer,
		SourceURL: m.SourceURL,
		Timestamp: m.Timestamp,
		Embedding: m.Embedding,
	}

	resp, err := d.post(ctx, "/rest/v1/"+d.config.Table, row)
	if err != nil {
		return 0, err
	}
	defer httpclient.DrainAndClose(resp.Body)

	var rows []insertedRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return 0, errors.Wrap(store.ErrMalformedResponse, "insert response is not a row list")
	}
	if len(rows) == 0 {
		return 0, errors.Wrap(store.ErrMalformedResponse, "insert returned no data")
	}
	if rows[0].ID == nil {
		return 0, errors.Wrap(store.ErrMalformedResponse, "insert did not return an id")
	}
	id, err := parseID(*rows[0].ID)
	if err != nil {
		return 0, errors.Wrap(store.ErrMalformedResponse, err.Error())
	}
	return id, nil
}

type searchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchCount     int       `json:"match_count"`
	ChannelFilter  string    `json:"channel_filter,omitempty"`
}

// matchRow mirrors one row of the search function output. Pointer fields
// distinguish absent columns from zero values.
type matchRow struct {
	ID        *json.Number `json:"id"`
	Question  *string      `json:"q_text"`
	Answer    *string      `json:"a_text"`
	SourceURL *string      `json:"source_url"`
	Timestamp *string      `json:"ts"`
	Distance  *float64     `json:"distance"`
}

// SearchMemory calls the similarity search RPC.
func (d *DB) SearchMemory(ctx context.Context, find *store.FindMemory) ([]*store.Match, error) {
	if find.K <= 0 {
		return []*store.Match{}, nil
	}

	payload := searchRequest{
		QueryEmbedding: find.QueryEmbedding,
		MatchCount:     find.K,
		ChannelFilter:  find.ChannelFilter(),
	}
	resp, err := d.post(ctx, "/rest/v1/rpc/"+d.config.SearchFunction, payload)
	if err != nil {
		return nil, err
	}
	defer httpclient.DrainAndClose(resp.Body)

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(store.ErrMalformedResponse, "RPC response is not JSON")
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil || rows == nil {
		slog.Error("unexpected RPC response", "function", d.config.SearchFunction, "payload", strutil.Truncate(string(raw), maxLoggedPayload))
		return nil, errors.Wrap(store.ErrMalformedResponse, "RPC response is not an array")
	}

	matches := make([]*store.Match, 0, len(rows))
	for i, rawRow := range rows {
		match, err := convertMatchRow(rawRow)
		if err != nil {
			slog.Error("RPC row skipped", "function", d.config.SearchFunction, "index", i, "error", err)
			continue
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func convertMatchRow(raw json.RawMessage) (*store.Match, error) {
	var row matchRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, errors.Wrap(err, "malformed row")
	}
	switch {
	case row.ID == nil:
		return nil, errors.New("RPC row missing field: id")
	case row.Question == nil:
		return nil, errors.New("RPC row missing field: q_text")
	case row.Answer == nil:
		return nil, errors.New("RPC row missing field: a_text")
	}

	id, err := parseID(*row.ID)
	if err != nil {
		return nil, err
	}

	match := &store.Match{
		ID:        id,
		Question:  *row.Question,
		Answer:    *row.Answer,
		SourceURL: row.SourceURL,
	}
	if row.Distance != nil {
		match.Score = *row.Distance
	}
	if row.Timestamp != nil {
		ts, err := store.ParseTimestamp(*row.Timestamp)
		if err != nil {
			slog.Warn("RPC row has unparseable timestamp", "id", id, "ts", *row.Timestamp)
		} else {
			match.Timestamp = &ts
		}
	}
	return match, nil
}

func parseID(n json.Number) (int64, error) {
	if id, err := n.Int64(); err == nil {
		return id, nil
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, errors.Errorf("id %q is not an integer", n.String())
	}
	return int64(f), nil
}
