package vectorstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/retrieval"
)

// Backend names accepted by New.
const (
	BackendQdrant  = "qdrant"
	BackendChromem = "chromem"
)

// Config selects and configures a vector index backend.
type Config struct {
	Backend string
	Qdrant  QdrantConfig
	Chromem ChromemConfig
}

// New builds the configured vector index backend.
func New(config Config, logger *zap.Logger) (retrieval.VectorIndex, error) {
	switch config.Backend {
	case BackendQdrant:
		return NewQdrantIndex(config.Qdrant, logger)
	case BackendChromem, "":
		return NewChromemIndex(config.Chromem, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, config.Backend)
	}
}
