// Package fusion blends the independently-scored semantic and keyword result
// lists into one comparable ranking. Each list is max-normalized, a validated
// weight pair is applied, and candidates present in both lists receive the
// sum of both weighted contributions.
package fusion

import (
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
	"github.com/fyrsmithlabs/rankd/internal/dedup"
)

// Default fusion parameters.
const (
	DefaultSemanticWeight = 0.7
	DefaultKeywordWeight  = 0.3
	DefaultDedupThreshold = 0.85
	DefaultMaxResults     = 10
	DefaultMinimumScore   = 0.0
)

// Weights is a semantic/keyword weight pair.
type Weights struct {
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword"`
}

// DefaultWeights returns the relevance-leaning default pair.
func DefaultWeights() Weights {
	return Weights{Semantic: DefaultSemanticWeight, Keyword: DefaultKeywordWeight}
}

// Normalize clamps negative weights to zero and rescales the pair to sum to
// 1. A degenerate pair (both zero or non-finite) falls back to the default.
func (w Weights) Normalize() Weights {
	if w.Semantic < 0 || w.Semantic != w.Semantic {
		w.Semantic = 0
	}
	if w.Keyword < 0 || w.Keyword != w.Keyword {
		w.Keyword = 0
	}
	total := w.Semantic + w.Keyword
	if total <= 0 {
		return DefaultWeights()
	}
	return Weights{Semantic: w.Semantic / total, Keyword: w.Keyword / total}
}

// Config controls a fusion run.
type Config struct {
	Weights Weights

	// MaxResults truncates the fused list. Non-positive values fall back to
	// the default.
	MaxResults int

	// MinimumScore drops fused candidates scoring below it.
	MinimumScore float64

	// DedupThreshold is the fuzzy near-duplicate threshold applied after
	// fusion.
	DedupThreshold float64
}

// DefaultConfig returns the default fusion configuration.
func DefaultConfig() Config {
	return Config{
		Weights:        DefaultWeights(),
		MaxResults:     DefaultMaxResults,
		MinimumScore:   DefaultMinimumScore,
		DedupThreshold: DefaultDedupThreshold,
	}
}

func (c Config) normalize() Config {
	c.Weights = c.Weights.Normalize()
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.MinimumScore < 0 {
		c.MinimumScore = 0
	}
	if c.DedupThreshold <= 0 || c.DedupThreshold > 1 {
		c.DedupThreshold = DefaultDedupThreshold
	}
	return c
}

// Fuser combines semantic and keyword result lists.
type Fuser struct {
	config Config
	logger *zap.Logger
}

// New creates a Fuser. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Fuser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fuser{config: cfg.normalize(), logger: logger}
}

// Fuse merges the two lists. Matching across lists is by exact candidate key;
// a candidate found in both lists is retagged ChannelBoth and its combined
// score is the sum of both weighted normalized contributions. The fused list
// is deduplicated (fuzzy), filtered by minimum score, and truncated to
// MaxResults. Output order is combined score descending with ties in stable
// input order (semantic list first).
func (f *Fuser) Fuse(semantic, keyword []*candidate.Candidate) []*candidate.Candidate {
	semNorm := maxNormalize(semantic)
	kwNorm := maxNormalize(keyword)
	w := f.config.Weights

	fused := make([]*candidate.Candidate, 0, len(semantic)+len(keyword))
	byKey := make(map[string]*candidate.Candidate, len(semantic)+len(keyword))

	for i, c := range semantic {
		c.Channel = candidate.ChannelSemantic
		c.SetScore(candidate.ScoreCombined, semNorm[i]*w.Semantic)
		byKey[c.Key()] = c
		fused = append(fused, c)
	}
	for i, c := range keyword {
		if prior, ok := byKey[c.Key()]; ok {
			prior.MergeFrom(c)
			prior.Channel = candidate.ChannelBoth
			combined, _ := prior.Score(candidate.ScoreCombined)
			prior.SetScore(candidate.ScoreCombined, combined+kwNorm[i]*w.Keyword)
			continue
		}
		c.Channel = candidate.ChannelKeyword
		c.SetScore(candidate.ScoreCombined, kwNorm[i]*w.Keyword)
		byKey[c.Key()] = c
		fused = append(fused, c)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].EffectiveScore() > fused[j].EffectiveScore()
	})

	deduper := dedup.New(dedup.Config{
		Fuzzy:                  true,
		NearDuplicateThreshold: f.config.DedupThreshold,
		SimilarityThreshold:    f.config.DedupThreshold,
	}, f.logger)
	fused = deduper.Deduplicate(fused)

	filtered := fused[:0]
	for _, c := range fused {
		if c.EffectiveScore() >= f.config.MinimumScore {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) > f.config.MaxResults {
		filtered = filtered[:f.config.MaxResults]
	}

	f.logger.Debug("fused result lists",
		zap.Int("semantic", len(semantic)),
		zap.Int("keyword", len(keyword)),
		zap.Int("fused", len(filtered)),
		zap.Float64("semantic_weight", w.Semantic),
		zap.Float64("keyword_weight", w.Keyword),
	)
	return filtered
}

// maxNormalize returns each candidate's raw score divided by the list
// maximum, so every non-empty list spans (0,1] with 1.0 for the best entry.
// An all-zero or empty list normalizes to zeros.
func maxNormalize(list []*candidate.Candidate) []float64 {
	norm := make([]float64, len(list))
	max := 0.0
	for _, c := range list {
		if c.RawScore > max {
			max = c.RawScore
		}
	}
	if max <= 0 {
		return norm
	}
	for i, c := range list {
		norm[i] = c.RawScore / max
	}
	return norm
}
