// Package vectorstore provides the embedding provider and the vector-index
// collaborators behind the retriever: a Qdrant-backed index for deployments
// with a running Qdrant, and an embedded chromem-go index for single-binary
// and development setups.
package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// EmbedderConfig holds configuration for the embedding service. The endpoint
// is OpenAI-compatible, which covers both OpenAI and local TEI servers.
type EmbedderConfig struct {
	// BaseURL is the embedding API base URL.
	BaseURL string

	// Model is the embedding model name.
	Model string

	// APIKey is required for OpenAI, optional for TEI.
	APIKey string
}

// Validate validates the configuration.
func (c EmbedderConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// Embedder generates query and document embeddings via langchaingo.
type Embedder struct {
	embedder *embeddings.EmbedderImpl
	config   EmbedderConfig
}

// NewEmbedder creates an Embedder against an OpenAI-compatible endpoint.
func NewEmbedder(config EmbedderConfig) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating embedder config: %w", err)
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// langchaingo requires a token; TEI ignores it.
		apiKey = "placeholder"
	}
	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithEmbeddingModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return &Embedder{embedder: impl, config: config}, nil
}

// Embed returns the embedding for one query text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrInvalidConfig)
	}
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}

// EmbedBatch returns embeddings for several texts, in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrInvalidConfig)
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	return vectors, nil
}
