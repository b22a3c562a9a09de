package store

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Memory is a stored question/answer pair with its embedding.
type Memory struct {
	Timestamp *time.Time
	SourceURL *string
	Channel   string
	Question  string
	Answer    string
	Embedding []float32
}

// Match is a memory ranked by similarity to a query vector.
type Match struct {
	Timestamp *time.Time `json:"ts"`
	SourceURL *string    `json:"source_url"`
	Question  string     `json:"q_text"`
	Answer    string     `json:"a_text"`
	ID        int64      `json:"id"`
	Score     float64    `json:"score"`
}

// FindMemory specifies a similarity search.
type FindMemory struct {
	// Channel restricts results to one channel when non-nil and non-empty.
	Channel        *string
	QueryEmbedding []float32
	K              int
}

// ChannelFilter returns the channel to filter on, or "" for all channels.
func (f *FindMemory) ChannelFilter() string {
	if f.Channel == nil {
		return ""
	}
	return *f.Channel
}

// ErrMalformedResponse marks datastore replies that do not have the expected shape.
var ErrMalformedResponse = errors.New("datastore returned unexpected payload")

// timestampLayouts are the shapes Postgres and PostgREST use for timestamptz.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses a timestamp as stored by the datastore.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized timestamp %q", s)
}
