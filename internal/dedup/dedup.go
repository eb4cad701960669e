// Package dedup removes exact and near-duplicate candidates. Removal runs in
// two phases: a hash-based exact phase, then a pairwise similarity phase over
// the survivors. Both phases keep the higher-raw-score member of any collapsed
// group and merge provenance from the loser into the winner.
//
// Complexity is O(n²) per phase. Candidate sets are bounded to low tens by the
// retriever's top-K limits; callers must preserve that bound.
package dedup

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
	"github.com/fyrsmithlabs/rankd/internal/textsim"
)

// Default thresholds for the near-duplicate and similarity passes.
const (
	DefaultNearDuplicateThreshold = 0.95
	DefaultSimilarityThreshold    = 0.85
)

// Config controls the similarity phase.
type Config struct {
	// Fuzzy selects the combined character+word similarity. When false, pure
	// word-Jaccard similarity is used.
	Fuzzy bool

	// NearDuplicateThreshold is applied in the first similarity pass.
	NearDuplicateThreshold float64

	// SimilarityThreshold is applied in a second pass, but only when it is
	// strictly lower than NearDuplicateThreshold; otherwise the second pass
	// is skipped entirely.
	SimilarityThreshold float64
}

// DefaultConfig returns the fuzzy configuration with default thresholds.
func DefaultConfig() Config {
	return Config{
		Fuzzy:                  true,
		NearDuplicateThreshold: DefaultNearDuplicateThreshold,
		SimilarityThreshold:    DefaultSimilarityThreshold,
	}
}

// normalize clamps thresholds into [0,1] and fills zero values with defaults.
// Invalid configuration is repaired, not rejected.
func (c Config) normalize() Config {
	if c.NearDuplicateThreshold <= 0 || c.NearDuplicateThreshold > 1 {
		c.NearDuplicateThreshold = DefaultNearDuplicateThreshold
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return c
}

// Deduplicator collapses duplicate candidates.
type Deduplicator struct {
	config Config
	logger *zap.Logger
}

// New creates a Deduplicator. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Deduplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduplicator{config: cfg.normalize(), logger: logger}
}

// Deduplicate runs both phases and returns the surviving candidates in stable
// input order. The input slice is not modified. Deduplication is idempotent:
// running it on its own output returns the same set.
func (d *Deduplicator) Deduplicate(candidates []*candidate.Candidate) []*candidate.Candidate {
	if len(candidates) <= 1 {
		return candidates
	}

	exact := d.removeExact(candidates)
	result := d.removeSimilar(exact, d.config.NearDuplicateThreshold)
	if d.config.SimilarityThreshold < d.config.NearDuplicateThreshold {
		result = d.removeSimilar(result, d.config.SimilarityThreshold)
	}

	if removed := len(candidates) - len(result); removed > 0 {
		d.logger.Debug("deduplicated candidates",
			zap.Int("input", len(candidates)),
			zap.Int("removed", removed),
		)
	}
	return result
}

// removeExact collapses candidates with identical normalized content. The
// hash is cheap; a full character-similarity check guards against collisions
// before any merge.
func (d *Deduplicator) removeExact(candidates []*candidate.Candidate) []*candidate.Candidate {
	accepted := make([]*candidate.Candidate, 0, len(candidates))
	byHash := make(map[uint64][]int, len(candidates))

	for _, c := range candidates {
		h := textsim.ContentHash(c.Content)
		merged := false
		for _, idx := range byHash[h] {
			prior := accepted[idx]
			if textsim.CharacterSimilarity(textsim.Normalize(c.Content), textsim.Normalize(prior.Content)) < 1.0 {
				continue // hash collision, distinct content
			}
			accepted[idx] = keepBest(prior, c)
			merged = true
			break
		}
		if !merged {
			byHash[h] = append(byHash[h], len(accepted))
			accepted = append(accepted, c)
		}
	}
	return accepted
}

// removeSimilar collapses candidates whose similarity against an
// already-accepted candidate meets threshold.
func (d *Deduplicator) removeSimilar(candidates []*candidate.Candidate, threshold float64) []*candidate.Candidate {
	accepted := make([]*candidate.Candidate, 0, len(candidates))
	for _, c := range candidates {
		merged := false
		for i, prior := range accepted {
			if d.similarity(c.Content, prior.Content) >= threshold {
				accepted[i] = keepBest(prior, c)
				merged = true
				break
			}
		}
		if !merged {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

func (d *Deduplicator) similarity(a, b string) float64 {
	if d.config.Fuzzy {
		return textsim.CombinedSimilarity(a, b)
	}
	return textsim.WordJaccardSimilarity(a, b)
}

// keepBest merges the lower-scored candidate into the higher one and returns
// the winner. Scores compare via EffectiveScore so post-fusion passes use the
// combined score. Ties keep the earlier-seen candidate.
func keepBest(prior, next *candidate.Candidate) *candidate.Candidate {
	if next.EffectiveScore() > prior.EffectiveScore() {
		next.MergeFrom(prior)
		return next
	}
	prior.MergeFrom(next)
	return prior
}
