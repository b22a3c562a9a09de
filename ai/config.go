package ai

import (
	"github.com/pkg/errors"

	"github.com/hrygo/slackqa/internal/profile"
)

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // http, openai
	Model      string // openai provider only
	APIKey     string
	BaseURL    string
	Dimensions int
}

// NewEmbeddingConfigFromProfile creates embedding config from profile.
func NewEmbeddingConfigFromProfile(p *profile.Profile) *EmbeddingConfig {
	return &EmbeddingConfig{
		Provider:   p.EmbeddingProvider,
		Model:      p.EmbeddingModel,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingAPIURL,
		Dimensions: p.EmbeddingDim,
	}
}

// Validate validates the configuration.
func (c *EmbeddingConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("embedding API URL is required")
	}
	if c.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Dimensions <= 0 {
		return errors.Errorf("embedding dimension must be positive, got %d", c.Dimensions)
	}
	switch c.Provider {
	case "", profile.EmbeddingProviderHTTP:
	case profile.EmbeddingProviderOpenAI:
		if c.Model == "" {
			return errors.New("embedding model is required for the openai provider")
		}
	default:
		return errors.Errorf("unknown embedding provider %q", c.Provider)
	}
	return nil
}
