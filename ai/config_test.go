package ai

import (
	"testing"

	"github.com/hrygo/slackqa/internal/profile"
)

// TestNewEmbeddingConfigFromProfile checks that every embedding setting is carried over.
func TestNewEmbeddingConfigFromProfile(t *testing.T) {
	prof := &profile.Profile{
		EmbeddingProvider: profile.EmbeddingProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		EmbeddingAPIKey:   "test-key",
		EmbeddingAPIURL:   "https://api.openai.com/v1",
		EmbeddingDim:      1536,
	}

	cfg := NewEmbeddingConfigFromProfile(prof)

	if cfg.Provider != profile.EmbeddingProviderOpenAI {
		t.Errorf("Expected Provider=openai, got %s", cfg.Provider)
	}
	if cfg.Model != "text-embedding-3-small" {
		t.Errorf("Expected Model=text-embedding-3-small, got %s", cfg.Model)
	}
	if cfg.APIKey != "test-key" {
		t.Errorf("Expected APIKey=test-key, got %s", cfg.APIKey)
	}
	if cfg.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("Expected BaseURL=https://api.openai.com/v1, got %s", cfg.BaseURL)
	}
	if cfg.Dimensions != 1536 {
		t.Errorf("Expected Dimensions=1536, got %d", cfg.Dimensions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

// TestNewEmbeddingConfigFromProfile_OpenAIRequiresModel checks the openai provider needs a model.
func TestNewEmbeddingConfigFromProfile_OpenAIRequiresModel(t *testing.T) {
	cfg := NewEmbeddingConfigFromProfile(&profile.Profile{
		EmbeddingProvider: profile.EmbeddingProviderOpenAI,
		EmbeddingAPIKey:   "k",
		EmbeddingAPIURL:   "https://api.openai.com/v1",
		EmbeddingDim:      8,
	})
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing model")
	}
}
