// Package config loads service configuration. Precedence, highest first:
// environment variables (RANKD_ prefix), YAML config file, built-in
// defaults. Numeric settings out of range are clamped by the stage that
// consumes them, never rejected, so a bad value cannot keep the service
// down.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/rankd/internal/filter"
	"github.com/fyrsmithlabs/rankd/internal/fusion"
	"github.com/fyrsmithlabs/rankd/internal/logging"
	"github.com/fyrsmithlabs/rankd/internal/ordering"
	"github.com/fyrsmithlabs/rankd/internal/pipeline"
)

const (
	envPrefix         = "RANKD_"
	maxConfigFileSize = 1024 * 1024
)

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     logging.Config    `koanf:"logging"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	WebSearch   WebSearchConfig   `koanf:"websearch"`
	LLM         LLMConfig         `koanf:"llm"`
	Pipeline    PipelineConfig    `koanf:"pipeline"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// EmbeddingsConfig points at an OpenAI-compatible embedding endpoint.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  string `koanf:"api_key"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	Provider string        `koanf:"provider"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
	Chromem  ChromemConfig `koanf:"chromem"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	APIKey     string `koanf:"api_key"`
	UseTLS     bool   `koanf:"use_tls"`
	Collection string `koanf:"collection"`
	VectorSize uint64 `koanf:"vector_size"`
}

// ChromemConfig holds embedded-store settings.
type ChromemConfig struct {
	Path       string `koanf:"path"`
	Compress   bool   `koanf:"compress"`
	Collection string `koanf:"collection"`
}

// WebSearchConfig holds web search provider settings. An empty BaseURL
// disables the web channel.
type WebSearchConfig struct {
	BaseURL   string        `koanf:"base_url"`
	APIKey    string        `koanf:"api_key"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
}

// LLMConfig points at an OpenAI-compatible chat endpoint for query
// expansion. An empty BaseURL disables expansion.
type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  string `koanf:"api_key"`
}

// PipelineConfig exposes the ranking tunables. Zero values take each
// stage's documented default; out-of-range values are clamped downstream.
type PipelineConfig struct {
	Mode          string `koanf:"mode"`
	MaxVariations int    `koanf:"max_variations"`

	VectorTopK     int     `koanf:"vector_top_k"`
	KeywordTopK    int     `koanf:"keyword_top_k"`
	WebMaxResults  int     `koanf:"web_max_results"`
	PrimaryFloor   float64 `koanf:"primary_floor"`
	SecondaryFloor float64 `koanf:"secondary_floor"`

	SemanticWeight float64          `koanf:"semantic_weight"`
	KeywordWeight  float64          `koanf:"keyword_weight"`
	Variants       []fusion.Variant `koanf:"variants"`
	MaxResults     int              `koanf:"max_results"`
	MinimumScore   float64          `koanf:"minimum_score"`
	DedupThreshold float64          `koanf:"dedup_threshold"`

	Lambda           float64 `koanf:"lambda"`
	UseVectors       bool    `koanf:"use_vectors"`
	OrderingStrategy string  `koanf:"ordering_strategy"`
}

// Load reads configuration. An empty path skips the file layer; a missing
// file at an explicit path is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	// RANKD_SERVER_PORT -> server.port, RANKD_PIPELINE_MAX_RESULTS ->
	// pipeline.max_results: the first underscore separates section from
	// field, later underscores stay in the field name.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stating config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return content, nil
}

// applyDefaults fills missing values.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8580
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080/v1"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "chromem"
	}
	if cfg.VectorStore.Qdrant.Host == "" {
		cfg.VectorStore.Qdrant.Host = "localhost"
	}
	if cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = 6334
	}
	if cfg.VectorStore.Qdrant.Collection == "" {
		cfg.VectorStore.Qdrant.Collection = "rankd_chunks"
	}
	if cfg.VectorStore.Qdrant.VectorSize == 0 {
		cfg.VectorStore.Qdrant.VectorSize = 384
	}
	if cfg.VectorStore.Chromem.Collection == "" {
		cfg.VectorStore.Chromem.Collection = "rankd_chunks"
	}

	if cfg.Pipeline.Mode == "" {
		cfg.Pipeline.Mode = string(filter.ModeModerate)
	}
}

// ToPipeline maps the flat tunables onto per-stage configs. Every stage
// clamps its own inputs, so invalid values degrade to defaults here rather
// than erroring.
func (p PipelineConfig) ToPipeline() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Mode = filter.Mode(p.Mode)
	cfg.Variants = p.Variants

	if p.MaxVariations > 0 {
		cfg.Expand.MaxVariations = p.MaxVariations
	}

	if p.VectorTopK > 0 {
		cfg.Retrieval.VectorTopK = p.VectorTopK
	}
	if p.KeywordTopK > 0 {
		cfg.Retrieval.KeywordTopK = p.KeywordTopK
	}
	if p.WebMaxResults > 0 {
		cfg.Retrieval.WebMaxResults = p.WebMaxResults
	}
	if p.PrimaryFloor > 0 {
		cfg.Retrieval.PrimaryFloor = p.PrimaryFloor
	}
	if p.SecondaryFloor > 0 {
		cfg.Retrieval.SecondaryFloor = p.SecondaryFloor
	}

	if p.SemanticWeight > 0 || p.KeywordWeight > 0 {
		cfg.Fusion.Weights = fusion.Weights{Semantic: p.SemanticWeight, Keyword: p.KeywordWeight}
	}
	if p.MaxResults > 0 {
		cfg.Fusion.MaxResults = p.MaxResults
		cfg.Diversity.MaxResults = p.MaxResults
	}
	if p.MinimumScore > 0 {
		cfg.Fusion.MinimumScore = p.MinimumScore
	}
	if p.DedupThreshold > 0 {
		cfg.Fusion.DedupThreshold = p.DedupThreshold
		cfg.Dedup.SimilarityThreshold = p.DedupThreshold
	}

	if p.Lambda > 0 {
		cfg.Diversity.Lambda = p.Lambda
	}
	cfg.Diversity.UseVectors = p.UseVectors

	if p.OrderingStrategy != "" {
		cfg.Ordering.Strategy = ordering.Strategy(p.OrderingStrategy)
	}
	return cfg
}
