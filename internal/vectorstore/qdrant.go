package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/retrieval"
)

// QdrantConfig holds connection settings for a Qdrant-backed index.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string

	// VectorSize is used when creating a missing collection.
	VectorSize uint64
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}
	return nil
}

// QdrantIndex is a vector index backed by a Qdrant server over gRPC.
type QdrantIndex struct {
	client *qdrant.Client
	config QdrantConfig
	logger *zap.Logger
}

// NewQdrantIndex connects to Qdrant. A nil logger disables logging.
func NewQdrantIndex(config QdrantConfig, logger *zap.Logger) (*QdrantIndex, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating qdrant config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	port := config.Port
	if port == 0 {
		port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}
	return &QdrantIndex{client: client, config: config, logger: logger}, nil
}

// EnsureCollection creates the configured collection when missing.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.config.Collection)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if exists {
		return nil
	}
	size := q.config.VectorSize
	if size == 0 {
		size = 384
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	q.logger.Info("created qdrant collection",
		zap.String("collection", q.config.Collection),
		zap.Uint64("vector_size", size),
	)
	return nil
}

// IndexChunk is one embeddable document chunk.
type IndexChunk struct {
	SourceID   string
	ChunkIndex int
	Content    string
	Vector     []float32
}

// Upsert writes chunks into the collection. Point ids derive from the
// source id and chunk index so re-indexing overwrites rather than
// duplicates.
func (q *QdrantIndex) Upsert(ctx context.Context, chunks []IndexChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(chunkPointID(chunk.SourceID, chunk.ChunkIndex)),
			Vectors: qdrant.NewVectors(chunk.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"source_id":   chunk.SourceID,
				"chunk_index": int64(chunk.ChunkIndex),
				"content":     chunk.Content,
			}),
		}
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.config.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	return nil
}

// Search returns the top-K nearest chunks for a query vector.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, topK int) ([]retrieval.VectorHit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: vector cannot be empty", ErrInvalidConfig)
	}
	if topK <= 0 {
		topK = 5
	}
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.config.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying qdrant: %w", err)
	}

	hits := make([]retrieval.VectorHit, 0, len(points))
	for _, p := range points {
		hit := retrieval.VectorHit{Score: float64(p.GetScore())}
		payload := p.GetPayload()
		if v, ok := payload["source_id"]; ok {
			hit.SourceID = v.GetStringValue()
		}
		if v, ok := payload["chunk_index"]; ok {
			hit.ChunkIndex = int(v.GetIntegerValue())
		}
		if v, ok := payload["content"]; ok {
			hit.Content = v.GetStringValue()
		}
		if vectors := p.GetVectors(); vectors != nil {
			hit.Vector = vectors.GetVector().GetData()
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close releases the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func chunkPointID(sourceID string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", sourceID, chunkIndex))).String()
}
