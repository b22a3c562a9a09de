package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/slackqa/internal/httpclient"
	"github.com/hrygo/slackqa/internal/profile"
)

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates a vector of exactly Dimensions() components for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

// EmbeddingError reports an unusable embedding request or provider payload.
// Transport failures and non-2xx statuses are reported as other error types.
type EmbeddingError struct {
	Reason string
}

func (e *EmbeddingError) Error() string {
	return "embedding: " + e.Reason
}

func embeddingErrorf(format string, args ...any) *EmbeddingError {
	return &EmbeddingError{Reason: fmt.Sprintf(format, args...)}
}

// NewEmbeddingService creates the EmbeddingService for cfg.Provider.
// A nil client means the process-wide shared client.
func NewEmbeddingService(cfg *EmbeddingConfig, client *http.Client) (EmbeddingService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = httpclient.Shared()
	}

	if cfg.Provider == profile.EmbeddingProviderOpenAI {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = cfg.BaseURL
		clientConfig.HTTPClient = client
		return &openAIEmbeddingService{
			client:     openai.NewClientWithConfig(clientConfig),
			model:      cfg.Model,
			dimensions: cfg.Dimensions,
		}, nil
	}

	return &httpEmbeddingService{
		client:     client,
		url:        cfg.BaseURL,
		apiKey:     cfg.APIKey,
		dimensions: cfg.Dimensions,
	}, nil
}

// httpEmbeddingService talks to a provider accepting {"text": ...} and
// answering {"embedding": [...]}.
type httpEmbeddingService struct {
	client     *http.Client
	url        string
	apiKey     string
	dimensions int
}

func (s *httpEmbeddingService) Dimensions() int {
	return s.dimensions
}

func (s *httpEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embeddingErrorf("text must be non-empty")
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal embedding request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct embedding request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call embedding provider")
	}
	defer httpclient.DrainAndClose(resp.Body)

	if err := httpclient.CheckStatus("embedding provider", resp); err != nil {
		return nil, err
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, embeddingErrorf("embedding payload is not a JSON object: %v", err)
	}
	return parseEmbedding(payload["embedding"], s.dimensions)
}

// parseEmbedding validates the raw "embedding" field against dim.
func parseEmbedding(raw json.RawMessage, dim int) ([]float32, error) {
	if len(raw) == 0 {
		return nil, embeddingErrorf("embedding payload missing or invalid")
	}
	var values []json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		return nil, embeddingErrorf("embedding payload missing or invalid")
	}
	if len(values) != dim {
		return nil, embeddingErrorf("embedding dimension mismatch (expected %d, got %d)", dim, len(values))
	}

	vector := make([]float32, len(values))
	for i, v := range values {
		// null would otherwise decode to 0 without error.
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, embeddingErrorf("embedding values must be numeric (index %d)", i)
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return nil, embeddingErrorf("embedding values must be numeric (index %d)", i)
		}
		vector[i] = float32(f)
	}
	return vector, nil
}

// openAIEmbeddingService uses any OpenAI-compatible /embeddings endpoint.
type openAIEmbeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
}

func (s *openAIEmbeddingService) Dimensions() int {
	return s.dimensions
}

func (s *openAIEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embeddingErrorf("text must be non-empty")
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings failed")
	}
	if len(resp.Data) == 0 {
		return nil, embeddingErrorf("embedding payload missing or invalid")
	}

	vector := resp.Data[0].Embedding
	if len(vector) != s.dimensions {
		return nil, embeddingErrorf("embedding dimension mismatch (expected %d, got %d)", s.dimensions, len(vector))
	}
	return vector, nil
}
