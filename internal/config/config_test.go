package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/rankd/internal/filter"
	"github.com/fyrsmithlabs/rankd/internal/ordering"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8580, cfg.Server.Port)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, "rankd_chunks", cfg.VectorStore.Chromem.Collection)
	assert.Equal(t, string(filter.ModeModerate), cfg.Pipeline.Mode)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
vectorstore:
  provider: qdrant
  qdrant:
    host: qdrant.internal
pipeline:
  mode: strict
  max_results: 5
  semantic_weight: 0.6
  keyword_weight: 0.4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 6334, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, "strict", cfg.Pipeline.Mode)

	p := cfg.Pipeline.ToPipeline()
	assert.Equal(t, filter.ModeStrict, p.Mode)
	assert.Equal(t, 5, p.Fusion.MaxResults)
	assert.Equal(t, 5, p.Diversity.MaxResults)
	assert.InDelta(t, 0.6, p.Fusion.Weights.Semantic, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o600))
	t.Setenv("RANKD_SERVER_PORT", "9100")
	t.Setenv("RANKD_PIPELINE_MAX_RESULTS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Pipeline.MaxResults)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestToPipelineZeroValuesKeepDefaults(t *testing.T) {
	p := PipelineConfig{}.ToPipeline()

	assert.Equal(t, 10, p.Fusion.MaxResults)
	assert.InDelta(t, 0.7, p.Fusion.Weights.Semantic, 0.001)
	assert.InDelta(t, 0.7, p.Diversity.Lambda, 0.001)
	assert.Equal(t, ordering.StrategyHybrid, p.Ordering.Strategy)
}

func TestToPipelineOrderingStrategy(t *testing.T) {
	p := PipelineConfig{OrderingStrategy: "chronological"}.ToPipeline()
	assert.Equal(t, ordering.StrategyChronological, p.Ordering.Strategy)
}
