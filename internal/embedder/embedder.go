// Package embedder turns text into embedding vectors for semantic
// relevance scoring. Implementations must be safe for concurrent use.
package embedder

import (
	"context"
	"strings"

	"github.com/e7nd7r/gnapsis/internal/types"
)

// Embedder generates embedding vectors from text content.
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimensionality of embedding vectors.
	Dimensions() int

	// Model returns the name of the embedding model in use.
	Model() string

	// Health returns the health status of the embedder.
	Health(ctx context.Context) types.HealthStatus
}

// Config selects and configures an embedding provider.
type Config struct {
	// Provider is "openai" or "mock".
	Provider string `mapstructure:"provider" validate:"required,oneof=openai mock"`

	// Model is the embedding model name.
	Model string `mapstructure:"model"`

	// APIKey authenticates against the provider. Falls back to the
	// provider's conventional environment variable when empty.
	APIKey string `mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint, for OpenAI-compatible
	// local servers.
	BaseURL string `mapstructure:"base_url"`

	// Dimensions pins the expected vector width. Zero means provider
	// default.
	Dimensions int `mapstructure:"dimensions" validate:"omitempty,min=1"`
}

// New builds an embedder from config.
func New(cfg Config) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIEmbedder(cfg)
	case "mock":
		mock := NewMockEmbedder()
		if cfg.Dimensions > 0 {
			mock.SetDimensions(cfg.Dimensions)
		}
		return mock, nil
	default:
		return nil, types.NewError(ErrCodeInvalidConfig,
			"unknown embedder provider: "+cfg.Provider)
	}
}
