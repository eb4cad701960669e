package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/retrieval"
)

// ChromemConfig holds settings for the embedded chromem-go index.
type ChromemConfig struct {
	// Path enables on-disk persistence; empty keeps the index in memory.
	Path string

	// Compress gzips persisted collections.
	Compress bool

	Collection string
}

// ChromemIndex is an embedded vector index, used for single-binary and
// development deployments where no Qdrant is available.
type ChromemIndex struct {
	collection *chromem.Collection
	logger     *zap.Logger
}

// NewChromemIndex opens or creates the embedded index. Documents are added
// with precomputed embeddings, so no embedding func is registered.
func NewChromemIndex(config ChromemConfig, logger *zap.Logger) (*ChromemIndex, error) {
	if config.Collection == "" {
		return nil, fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *chromem.DB
	var err error
	if config.Path != "" {
		db, err = chromem.NewPersistentDB(config.Path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are always supplied by the caller; the embedding func is a
	// guard against accidental un-embedded adds.
	collection, err := db.GetOrCreateCollection(config.Collection, nil, func(_ context.Context, _ string) ([]float32, error) {
		return nil, fmt.Errorf("chromem index requires precomputed embeddings")
	})
	if err != nil {
		return nil, fmt.Errorf("opening collection: %w", err)
	}
	return &ChromemIndex{collection: collection, logger: logger}, nil
}

// Upsert writes chunks with their precomputed vectors.
func (c *ChromemIndex) Upsert(ctx context.Context, chunks []IndexChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        chunkPointID(chunk.SourceID, chunk.ChunkIndex),
			Embedding: chunk.Vector,
			Content:   chunk.Content,
			Metadata: map[string]string{
				"source_id":   chunk.SourceID,
				"chunk_index": strconv.Itoa(chunk.ChunkIndex),
			},
		}
	}
	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

// Search returns the top-K nearest chunks for a query vector.
func (c *ChromemIndex) Search(ctx context.Context, vector []float32, topK int) ([]retrieval.VectorHit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: vector cannot be empty", ErrInvalidConfig)
	}
	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > count {
		topK = count
	}

	results, err := c.collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying chromem: %w", err)
	}

	hits := make([]retrieval.VectorHit, 0, len(results))
	for _, r := range results {
		hit := retrieval.VectorHit{
			SourceID: r.Metadata["source_id"],
			Content:  r.Content,
			Score:    float64(r.Similarity),
			Vector:   r.Embedding,
		}
		if idx, err := strconv.Atoi(r.Metadata["chunk_index"]); err == nil {
			hit.ChunkIndex = idx
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
