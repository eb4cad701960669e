package retrieval

import (
	"context"
	"time"
)

// EmbeddingProvider embeds query text for vector-index lookups.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorHit is one nearest-neighbor match from the vector index.
type VectorHit struct {
	SourceID   string
	ChunkIndex int
	Content    string
	Score      float64
	Vector     []float32
}

// VectorIndex searches document chunks by embedding.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, topK int) ([]VectorHit, error)
}

// KeywordHit is one lexical match from the keyword index.
type KeywordHit struct {
	SourceID   string
	ChunkIndex int
	Content    string
	Score      float64
}

// KeywordIndex searches document chunks lexically.
type KeywordIndex interface {
	Search(ctx context.Context, query string, topK int) ([]KeywordHit, error)
}

// WebFilters narrow a web search.
type WebFilters struct {
	Topic    string
	Country  string
	DateFrom time.Time
	DateTo   time.Time
	// MaxResults overrides the retriever's configured web result count when
	// positive.
	MaxResults int
}

// WebHit is one result from the web-search provider.
type WebHit struct {
	Title         string
	URL           string
	Content       string
	PublishedDate *time.Time
	Author        string
	Score         float64
}

// WebSearcher queries the live web-search provider.
type WebSearcher interface {
	Search(ctx context.Context, query string, filters WebFilters) ([]WebHit, error)
}

// DocumentMeta is display metadata for an indexed document.
type DocumentMeta struct {
	ID       string
	Filename string
}

// DocumentStore resolves display names for document candidates.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (DocumentMeta, error)
}
