// Package main implements the rankd CLI: a retrieval fusion and ranking
// service with a serve daemon and a one-shot query mode.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/config"
	"github.com/fyrsmithlabs/rankd/internal/docstore"
	"github.com/fyrsmithlabs/rankd/internal/expand"
	"github.com/fyrsmithlabs/rankd/internal/keyword"
	"github.com/fyrsmithlabs/rankd/internal/logging"
	"github.com/fyrsmithlabs/rankd/internal/pipeline"
	"github.com/fyrsmithlabs/rankd/internal/retrieval"
	"github.com/fyrsmithlabs/rankd/internal/scoring"
	"github.com/fyrsmithlabs/rankd/internal/telemetry"
	"github.com/fyrsmithlabs/rankd/internal/vectorstore"
	"github.com/fyrsmithlabs/rankd/internal/webclient"
)

var (
	version    = "dev"
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "rankd",
	Short:   "Retrieval fusion and ranking service",
	Long:    `rankd retrieves candidates from a vector index, a keyword index, and a web-search provider, then fuses, deduplicates, filters, diversifies, and orders them into one ranked result list.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
}

// buildPipeline wires all collaborators from config. Optional collaborators
// (web search, LLM expansion) stay nil when unconfigured; their channels then
// contribute nothing.
func buildPipeline(cfg *config.Config, meter metric.Meter, logger *zap.Logger) (*pipeline.Pipeline, error) {
	embedder, err := vectorstore.NewEmbedder(vectorstore.EmbedderConfig{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	vectorIndex, err := vectorstore.New(vectorstore.Config{
		Backend: cfg.VectorStore.Provider,
		Qdrant: vectorstore.QdrantConfig{
			Host:       cfg.VectorStore.Qdrant.Host,
			Port:       cfg.VectorStore.Qdrant.Port,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			UseTLS:     cfg.VectorStore.Qdrant.UseTLS,
			Collection: cfg.VectorStore.Qdrant.Collection,
			VectorSize: cfg.VectorStore.Qdrant.VectorSize,
		},
		Chromem: vectorstore.ChromemConfig{
			Path:       cfg.VectorStore.Chromem.Path,
			Compress:   cfg.VectorStore.Chromem.Compress,
			Collection: cfg.VectorStore.Chromem.Collection,
		},
	}, logger.Named("vectorstore"))
	if err != nil {
		return nil, fmt.Errorf("building vector index: %w", err)
	}

	var web retrieval.WebSearcher
	if cfg.WebSearch.BaseURL != "" {
		client, err := webclient.NewClient(webclient.Config{
			BaseURL:   cfg.WebSearch.BaseURL,
			APIKey:    cfg.WebSearch.APIKey,
			Timeout:   cfg.WebSearch.Timeout,
			RateLimit: cfg.WebSearch.RateLimit,
		}, logger.Named("webclient"))
		if err != nil {
			return nil, fmt.Errorf("building web client: %w", err)
		}
		web = client
	}

	pipelineCfg := cfg.Pipeline.ToPipeline()

	var expander *expand.Expander
	if cfg.LLM.BaseURL != "" {
		model, err := newLLM(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("building llm client: %w", err)
		}
		expander = expand.New(model, pipelineCfg.Expand, logger.Named("expand"))
	}

	retriever := retrieval.New(
		embedder,
		vectorIndex,
		keyword.NewIndex(),
		web,
		docstore.NewStore(),
		pipelineCfg.Retrieval,
		logger.Named("retrieval"),
	)

	return pipeline.New(
		pipelineCfg,
		expander,
		retriever,
		scoring.NewQualityScorer(),
		scoring.NewAuthorityScorer(nil),
		meter,
		logger.Named("pipeline"),
	)
}

func newLLM(cfg config.LLMConfig) (llms.Model, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}
	opts := []openai.Option{
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(apiKey),
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	return openai.New(opts...)
}

// setup loads config and builds the logger and telemetry shared by all
// commands.
func setup() (*config.Config, *zap.Logger, *telemetry.Telemetry, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building logger: %w", err)
	}
	tel, err := telemetry.New()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	return cfg, logger, tel, nil
}
