package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/slackqa/store"
)

// InsertMemory inserts a memory row and returns the generated id.
func (d *DB) InsertMemory(ctx context.Context, m *store.Memory) (int64, error) {
	stmt := `
		INSERT INTO ` + d.qualified(d.config.Table) + ` (channel, q_text, a_text, source_url, ts, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id sql.NullInt64
	err := d.db.QueryRowContext(ctx, stmt,
		m.Channel,
		m.Question,
		m.Answer,
		m.SourceURL,
		m.Timestamp,
		pgvector.NewVector(m.Embedding),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errors.Wrap(store.ErrMalformedResponse, "insert returned no data")
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert memory")
	}
	if !id.Valid {
		return 0, errors.Wrap(store.ErrMalformedResponse, "insert did not return an id")
	}
	return id.Int64, nil
}

// buildSearchQuery renders the search function call with named arguments.
// channel_filter is passed only when a channel is set.
func (d *DB) buildSearchQuery(find *store.FindMemory) (string, []any) {
	args := []any{pgvector.NewVector(find.QueryEmbedding), find.K}
	params := "query_embedding => $1, match_count => $2"
	if channel := find.ChannelFilter(); channel != "" {
		args = append(args, channel)
		params += ", channel_filter => $" + strconv.Itoa(len(args))
	}
	query := `SELECT id, q_text, a_text, source_url, ts, distance FROM ` +
		d.qualified(d.config.SearchFunction) + `(` + params + `)`
	return query, args
}

type matchRow struct {
	ID        sql.NullInt64
	Question  sql.NullString
	Answer    sql.NullString
	SourceURL sql.NullString
	Timestamp sql.NullTime
	Distance  sql.NullFloat64
}

func (r *matchRow) toMatch() (*store.Match, error) {
	switch {
	case !r.ID.Valid:
		return nil, errors.New("row missing field: id")
	case !r.Question.Valid:
		return nil, errors.New("row missing field: q_text")
	case !r.Answer.Valid:
		return nil, errors.New("row missing field: a_text")
	}

	match := &store.Match{
		ID:       r.ID.Int64,
		Question: r.Question.String,
		Answer:   r.Answer.String,
	}
	if r.SourceURL.Valid {
		source := r.SourceURL.String
		match.SourceURL = &source
	}
	if r.Timestamp.Valid {
		ts := r.Timestamp.Time
		match.Timestamp = &ts
	}
	if r.Distance.Valid {
		match.Score = r.Distance.Float64
	}
	return match, nil
}

// SearchMemory runs the similarity search function.
func (d *DB) SearchMemory(ctx context.Context, find *store.FindMemory) ([]*store.Match, error) {
	if find.K <= 0 {
		return []*store.Match{}, nil
	}

	query, args := d.buildSearchQuery(find)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memories")
	}
	defer rows.Close()

	list := []*store.Match{}
	for rows.Next() {
		var row matchRow
		if err := rows.Scan(&row.ID, &row.Question, &row.Answer, &row.SourceURL, &row.Timestamp, &row.Distance); err != nil {
			slog.Error("search row skipped", "function", d.config.SearchFunction, "error", err)
			continue
		}
		match, err := row.toMatch()
		if err != nil {
			slog.Error("search row skipped", "function", d.config.SearchFunction, "error", err)
			continue
		}
		list = append(list, match)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate search results")
	}
	return list, nil
}
