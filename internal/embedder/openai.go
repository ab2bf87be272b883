package embedder

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/e7nd7r/gnapsis/internal/types"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder calls the OpenAI embeddings API, or any
// OpenAI-compatible endpoint when BaseURL is set.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder builds an embedder from config. The API key falls
// back to OPENAI_API_KEY.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, types.NewError(ErrCodeInvalidConfig,
			"openai embedder requires api_key or OPENAI_API_KEY")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = 1536
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: dims,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, types.WrapRetryableError(ErrCodeEmbedFailed, "create embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, types.NewError(ErrCodeEmbedFailed, fmt.Sprintf(
			"provider returned %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	vectors := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != e.dimensions {
			return nil, types.NewError(ErrCodeDimensionMismatch, fmt.Sprintf(
				"expected %d dimensions, provider returned %d", e.dimensions, len(data.Embedding)))
		}
		vec := make([]float64, len(data.Embedding))
		for j, f := range data.Embedding {
			vec[j] = float64(f)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

func (e *OpenAIEmbedder) Model() string { return e.model }

// Health issues a minimal embedding request as a liveness probe.
func (e *OpenAIEmbedder) Health(ctx context.Context) types.HealthStatus {
	if _, err := e.Embed(ctx, "ping"); err != nil {
		return types.Unhealthy(err.Error())
	}
	return types.Healthy("embedding endpoint reachable")
}
