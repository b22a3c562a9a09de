package v1

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/slackqa/ai"
	"github.com/hrygo/slackqa/internal/httpclient"
	"github.com/hrygo/slackqa/internal/strutil"
	"github.com/hrygo/slackqa/server/metrics"
	"github.com/hrygo/slackqa/store"
)

const (
	defaultSearchK = 5
	maxLoggedBody  = 512
)

// UpsertMemoryRequest stores one Q&A pair.
type UpsertMemoryRequest struct {
	Channel   string     `json:"channel" validate:"required"`
	QText     string     `json:"q_text" validate:"required"`
	AText     string     `json:"a_text" validate:"required"`
	SourceURL *string    `json:"source_url"`
	TS        *Timestamp `json:"ts"`
}

// Timestamp accepts RFC 3339 as well as naive ISO and space-separated
// datetimes. Naive values are taken as UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &json.UnmarshalTypeError{Value: "non-string", Type: reflect.TypeOf(t.Time)}
	}
	parsed, err := store.ParseTimestamp(s)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "string " + strconv.Quote(s), Type: reflect.TypeOf(t.Time)}
	}
	t.Time = parsed
	return nil
}

func (t *Timestamp) timePtr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

type UpsertMemoryResponse struct {
	ID int64 `json:"id"`
}

// SearchMemoryRequest looks up similar memories.
// K defaults to 5 when absent; an explicit null is rejected.
type SearchMemoryRequest struct {
	Channel *string `json:"channel"`
	Query   string  `json:"query" validate:"required"`
	K       *int    `json:"k" validate:"required,gte=1,lte=20"`
}

type SearchMemoryResponse struct {
	Matches []*store.Match `json:"matches"`
}

// UpsertMemory embeds q_text and stores the pair.
func (s *APIV1Service) UpsertMemory(c echo.Context) error {
	var req UpsertMemoryRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	vector, err := s.embed(ctx, req.QText)
	if err != nil {
		return err
	}

	start := time.Now()
	id, err := s.Store.InsertMemory(ctx, &store.Memory{
		Timestamp: req.TS.timePtr(),
		SourceURL: req.SourceURL,
		Channel:   req.Channel,
		Question:  req.QText,
		Answer:    req.AText,
		Embedding: vector,
	})
	s.Metrics.RecordUpstream(metrics.UpstreamDatastore, time.Since(start), err)
	if err != nil {
		slog.Error("failed to insert memory", "channel", req.Channel, "error", err)
		return newProblem(http.StatusBadGateway, "Datastore insert failed")
	}

	slog.Info("memory stored", "id", id, "channel", req.Channel)
	return c.JSON(http.StatusOK, UpsertMemoryResponse{ID: id})
}

// SearchMemory embeds the query and returns the closest memories.
func (s *APIV1Service) SearchMemory(c echo.Context) error {
	k := defaultSearchK
	req := SearchMemoryRequest{K: &k}
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	vector, err := s.embed(ctx, req.Query)
	if err != nil {
		return err
	}

	start := time.Now()
	matches, err := s.Store.SearchMemory(ctx, &store.FindMemory{
		Channel:        req.Channel,
		QueryEmbedding: vector,
		K:              *req.K,
	})
	s.Metrics.RecordUpstream(metrics.UpstreamDatastore, time.Since(start), err)
	if err != nil {
		return searchProblem(err)
	}
	if matches == nil {
		matches = []*store.Match{}
	}

	slog.Debug("memory search", "k", *req.K, "matches", len(matches))
	return c.JSON(http.StatusOK, SearchMemoryResponse{Matches: matches})
}

func (s *APIV1Service) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vector, err := s.EmbeddingService.Embed(ctx, text)
	s.Metrics.RecordUpstream(metrics.UpstreamEmbedding, time.Since(start), err)
	if err == nil {
		return vector, nil
	}

	slog.Error("embedding request failed", "error", err)
	var embErr *ai.EmbeddingError
	if errors.As(err, &embErr) {
		return nil, newProblem(http.StatusBadGateway, "Embedding provider returned an unusable response")
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return nil, newProblem(http.StatusBadGateway, "Embedding provider request failed")
	}
	return nil, newProblem(http.StatusBadGateway, "Embedding provider unreachable")
}

// searchProblem maps a datastore search failure. Upstream error statuses are
// passed through, everything else is a 502.
func searchProblem(err error) *ProblemDetails {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		slog.Error("datastore search rejected",
			"status", statusErr.StatusCode,
			"body", strutil.Truncate(statusErr.Body, maxLoggedBody),
		)
		status := statusErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return newProblem(status, "Datastore search failed")
	}
	slog.Error("datastore search failed", "error", err)
	if errors.Is(err, store.ErrMalformedResponse) {
		return newProblem(http.StatusBadGateway, "Datastore returned an unexpected payload")
	}
	return newProblem(http.StatusBadGateway, "Datastore unreachable")
}
