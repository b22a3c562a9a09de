package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/slackqa/store"
)

func testDB() *DB {
	return &DB{config: Config{Schema: "public", Table: "kb", SearchFunction: "match_memories"}}
}

func TestBuildSearchQuery(t *testing.T) {
	d := testDB()

	query, args := d.buildSearchQuery(&store.FindMemory{QueryEmbedding: []float32{1, 2}, K: 5})
	assert.Equal(t, `SELECT id, q_text, a_text, source_url, ts, distance FROM "public"."match_memories"(query_embedding => $1, match_count => $2)`, query)
	require.Len(t, args, 2)
	assert.Equal(t, pgvector.NewVector([]float32{1, 2}), args[0])
	assert.Equal(t, 5, args[1])

	channel := "C123"
	query, args = d.buildSearchQuery(&store.FindMemory{Channel: &channel, QueryEmbedding: []float32{1}, K: 3})
	assert.Contains(t, query, "channel_filter => $3")
	require.Len(t, args, 3)
	assert.Equal(t, "C123", args[2])
}

func TestQualified_QuotesIdentifiers(t *testing.T) {
	d := &DB{config: Config{Schema: `we"ird`}}
	assert.Equal(t, `"we""ird"."kb"`, d.qualified("kb"))

	d = &DB{}
	assert.Equal(t, `"kb"`, d.qualified("kb"))
}

func TestMatchRow_ToMatch(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row := matchRow{
		ID:        sql.NullInt64{Int64: 42, Valid: true},
		Question:  sql.NullString{String: "q", Valid: true},
		Answer:    sql.NullString{String: "a", Valid: true},
		SourceURL: sql.NullString{String: "https://x", Valid: true},
		Timestamp: sql.NullTime{Time: ts, Valid: true},
		Distance:  sql.NullFloat64{Float64: 0.12, Valid: true},
	}

	m, err := row.toMatch()
	require.NoError(t, err)
	assert.Equal(t, int64(42), m.ID)
	assert.InDelta(t, 0.12, m.Score, 1e-9)
	assert.Equal(t, "https://x", *m.SourceURL)
	assert.Equal(t, ts, *m.Timestamp)

	row.Distance = sql.NullFloat64{}
	row.SourceURL = sql.NullString{}
	row.Timestamp = sql.NullTime{}
	m, err = row.toMatch()
	require.NoError(t, err)
	assert.Zero(t, m.Score)
	assert.Nil(t, m.SourceURL)
	assert.Nil(t, m.Timestamp)

	for _, broken := range []func(r *matchRow){
		func(r *matchRow) { r.ID = sql.NullInt64{} },
		func(r *matchRow) { r.Question = sql.NullString{} },
		func(r *matchRow) { r.Answer = sql.NullString{} },
	} {
		r := row
		broken(&r)
		_, err := r.toMatch()
		assert.Error(t, err)
	}
}

func TestSearchMemory_NonPositiveKMakesNoQuery(t *testing.T) {
	// db is nil: any query would panic.
	d := testDB()
	matches, err := d.SearchMemory(context.Background(), &store.FindMemory{K: 0})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestNewDB_RequiresDSN(t *testing.T) {
	_, err := NewDB(context.Background(), Config{})
	assert.Error(t, err)
}
