// Package embedder provides embedding backends for the vector record store.
package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	openai "github.com/sashabaranov/go-openai"

	"github.com/memlinkio/memlink/pkg/config"
	"github.com/memlinkio/memlink/pkg/interfaces"
)

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
	timeout   time.Duration
}

// NewOpenAIEmbedder creates an OpenAI embedder from config.
func NewOpenAIEmbedder(cfg *config.EmbedderConfig) (*OpenAIEmbedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		switch cfg.Model {
		case "text-embedding-3-large":
			dimension = 3072
		default:
			dimension = 1536
		}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     openai.EmbeddingModel(cfg.Model),
		dimension: dimension,
		timeout:   timeout,
	}, nil
}

// Embed generates an embedding for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var embedding []float32
	err := retry.Do(
		func() error {
			resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: []string{text},
				Model: e.model,
			})
			if err != nil {
				return err
			}
			if len(resp.Data) == 0 {
				return fmt.Errorf("no embeddings returned")
			}
			embedding = resp.Data[0].Embedding
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	return embedding, nil
}

// GetDimension returns the embedding dimension.
func (e *OpenAIEmbedder) GetDimension() int {
	return e.dimension
}

// Close closes the embedder. The OpenAI client needs no explicit cleanup.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

var _ interfaces.Embedder = (*OpenAIEmbedder)(nil)
