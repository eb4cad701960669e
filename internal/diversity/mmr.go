// Package diversity selects the final candidate subset with Maximal Marginal
// Relevance, trading relevance against redundancy with the already-selected
// set:
//
//	MMR(c) = λ·relevance(c) − (1−λ)·max over selected s of similarity(c, s)
//
// Selection is sequential per query: each step depends on the evolving
// selected set.
package diversity

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
	"github.com/fyrsmithlabs/rankd/internal/textsim"
)

// Default selection parameters. Lambda leans toward relevance.
const (
	DefaultLambda     = 0.7
	DefaultMaxResults = 10
)

// Config controls MMR selection.
type Config struct {
	// Lambda balances relevance (1.0) against diversity (0.0).
	Lambda float64

	// MaxResults bounds the selected set.
	MaxResults int

	// UseVectors enables cosine similarity over precomputed candidate
	// vectors, degrading to text similarity for pairs without vectors.
	UseVectors bool
}

// DefaultConfig returns the relevance-leaning default configuration.
func DefaultConfig() Config {
	return Config{Lambda: DefaultLambda, MaxResults: DefaultMaxResults}
}

func (c Config) normalize() Config {
	if c.Lambda < 0 || c.Lambda != c.Lambda {
		c.Lambda = 0
	}
	if c.Lambda > 1 {
		c.Lambda = 1
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	return c
}

// Selector picks a diverse subset of candidates.
type Selector struct {
	config Config
	logger *zap.Logger
}

// New creates a Selector. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{config: cfg.normalize(), logger: logger}
}

// Select returns up to MaxResults candidates. The set is seeded with the
// most relevant candidate; each following pick maximizes MMR against the
// current selected set. Ties keep the earlier candidate in relevance order,
// so selection is deterministic for a fixed input.
func (s *Selector) Select(candidates []*candidate.Candidate) []*candidate.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	remaining := make([]*candidate.Candidate, len(candidates))
	copy(remaining, candidates)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].EffectiveScore() > remaining[j].EffectiveScore()
	})

	k := s.config.MaxResults
	if k > len(remaining) {
		k = len(remaining)
	}

	selected := make([]*candidate.Candidate, 0, k)
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	lambda := s.config.Lambda
	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)
		for i, c := range remaining {
			redundancy := 0.0
			for _, sel := range selected {
				if sim := s.similarity(c, sel); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*c.EffectiveScore() - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	s.logger.Debug("selected diverse subset",
		zap.Int("input", len(candidates)),
		zap.Int("selected", len(selected)),
		zap.Float64("lambda", lambda),
	)
	return selected
}

// similarity compares two candidates: cosine over precomputed vectors when
// enabled and both are present, word-Jaccard over content otherwise.
func (s *Selector) similarity(a, b *candidate.Candidate) float64 {
	if s.config.UseVectors && len(a.Vector) > 0 && len(a.Vector) == len(b.Vector) {
		return cosineSimilarity(a.Vector, b.Vector)
	}
	return textsim.WordJaccardSimilarity(a.Content, b.Content)
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// clamped to [0,1]. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return candidate.Clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
