// Package expand widens recall by rewriting one query into several phrasings
// via a language-model collaborator. Expansion never fails past the pipeline:
// any model error, timeout, or unparseable output degrades to the original
// query. Successful expansions are cached with a fixed TTL.
package expand

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/textsim"
)

// Default expansion parameters.
const (
	DefaultMaxVariations = 3
	DefaultMaxTokens     = 200
	DefaultCacheTTL      = time.Hour
	DefaultCacheSize     = 1024
)

const systemPrompt = `You rewrite search queries. Given a query and optional context,
produce alternative phrasings that preserve the original intent and would each
work as a standalone search query. Respond with JSON only, in the form
{"variations": ["...", "..."]}.`

// Config controls the expander.
type Config struct {
	// MaxVariations bounds the returned list, original included.
	MaxVariations int

	// MaxTokens is the model generation budget.
	MaxTokens int

	// CacheTTL is how long a successful expansion is served from cache.
	CacheTTL time.Duration

	// CacheSize bounds the rewrite cache entry count.
	CacheSize int
}

// DefaultConfig returns the default expander configuration.
func DefaultConfig() Config {
	return Config{
		MaxVariations: DefaultMaxVariations,
		MaxTokens:     DefaultMaxTokens,
		CacheTTL:      DefaultCacheTTL,
		CacheSize:     DefaultCacheSize,
	}
}

func (c Config) normalize() Config {
	if c.MaxVariations <= 0 {
		c.MaxVariations = DefaultMaxVariations
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	return c
}

// Expander rewrites queries through a language model.
type Expander struct {
	model  llms.Model
	config Config
	cache  *rewriteCache
	logger *zap.Logger
}

// New creates an Expander. A nil model disables expansion (every query
// returns itself). A nil logger disables logging.
func New(model llms.Model, cfg Config, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.normalize()
	return &Expander{
		model:  model,
		config: cfg,
		cache:  newRewriteCache(cfg.CacheTTL, cfg.CacheSize),
		logger: logger,
	}
}

// Expand returns 1..MaxVariations search-ready phrasings of query, the
// original always first. queryContext is optional free text that steers the
// rewrite. Expand never returns an error or an empty list.
func (e *Expander) Expand(ctx context.Context, query, queryContext string) []string {
	query = strings.TrimSpace(query)
	if query == "" || e.model == nil || e.config.MaxVariations == 1 {
		return []string{query}
	}

	cacheKey := textsim.Normalize(query)
	if cached, ok := e.cache.get(cacheKey); ok {
		return cached
	}

	variations, err := e.generate(ctx, query, queryContext)
	if err != nil {
		e.logger.Warn("query expansion failed, using original query",
			zap.String("query", query),
			zap.Error(err),
		)
		return []string{query}
	}

	result := mergeVariations(query, variations, e.config.MaxVariations)
	e.cache.put(cacheKey, result)
	return result
}

// CacheSize reports the number of live cache entries.
func (e *Expander) CacheSize() int {
	return e.cache.size()
}

// generate calls the model and parses its JSON output.
func (e *Expander) generate(ctx context.Context, query, queryContext string) ([]string, error) {
	user := "Query: " + query
	if queryContext != "" {
		user += "\nContext: " + queryContext
	}
	user += fmt.Sprintf("\nReturn up to %d variations.", e.config.MaxVariations-1)

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	resp, err := e.model.GenerateContent(ctx, messages,
		llms.WithMaxTokens(e.config.MaxTokens),
		llms.WithTemperature(0.7),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, fmt.Errorf("generating variations: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}
	return parseVariations(resp.Choices[0].Content)
}

// parseVariations extracts {"variations": [...]} from model output,
// tolerating code fences and surrounding prose.
func parseVariations(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var parsed struct {
		Variations []string `json:"variations"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("parsing model output: %w", err)
	}
	return parsed.Variations, nil
}

// mergeVariations builds the final list: original first, then variations
// deduplicated case-insensitively in first-seen order, capped at max.
func mergeVariations(original string, variations []string, max int) []string {
	result := []string{original}
	seen := map[string]bool{textsim.Normalize(original): true}
	for _, v := range variations {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := textsim.Normalize(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, v)
		if len(result) >= max {
			break
		}
	}
	return result
}
