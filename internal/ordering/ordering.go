// Package ordering produces the final sort of the candidate list. The
// strategy is data: pure fused score, pure quality, chronological freshness
// (web results), or a weighted hybrid of score, quality, and authority. The
// orderer runs under a wall-clock budget and degrades to a raw-score sort for
// whatever it could not process in time.
package ordering

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
)

// Strategy selects the ordering behavior.
type Strategy string

const (
	StrategyScore         Strategy = "score"
	StrategyQuality       Strategy = "quality"
	StrategyChronological Strategy = "chronological"
	StrategyHybrid        Strategy = "hybrid"
)

// DefaultTimeBudget bounds one ordering run.
const DefaultTimeBudget = 50 * time.Millisecond

// HybridWeights weight the hybrid strategy's components.
type HybridWeights struct {
	Score     float64 `json:"score"`
	Quality   float64 `json:"quality"`
	Authority float64 `json:"authority"`
}

// DefaultHybridWeights lean on the fused score with quality and authority as
// secondary signals.
func DefaultHybridWeights() HybridWeights {
	return HybridWeights{Score: 0.6, Quality: 0.25, Authority: 0.15}
}

// normalize clamps negatives and rescales to sum 1. withScore=false drops
// the score component so quality and authority absorb its share, used when a
// candidate carries no usable relevance score.
func (w HybridWeights) normalize(withScore bool) HybridWeights {
	if w.Score < 0 {
		w.Score = 0
	}
	if w.Quality < 0 {
		w.Quality = 0
	}
	if w.Authority < 0 {
		w.Authority = 0
	}
	if !withScore {
		w.Score = 0
	}
	total := w.Score + w.Quality + w.Authority
	if total <= 0 {
		if !withScore {
			return HybridWeights{Quality: 0.5, Authority: 0.5}
		}
		return DefaultHybridWeights()
	}
	return HybridWeights{Score: w.Score / total, Quality: w.Quality / total, Authority: w.Authority / total}
}

// Config controls the orderer.
type Config struct {
	Strategy Strategy
	Hybrid   HybridWeights

	// TimeBudget bounds one Order call. Non-positive values use the default.
	TimeBudget time.Duration
}

// DefaultConfig returns the hybrid strategy with default weights.
func DefaultConfig() Config {
	return Config{
		Strategy:   StrategyHybrid,
		Hybrid:     DefaultHybridWeights(),
		TimeBudget: DefaultTimeBudget,
	}
}

func (c Config) normalize() Config {
	switch c.Strategy {
	case StrategyScore, StrategyQuality, StrategyChronological, StrategyHybrid:
	default:
		c.Strategy = StrategyHybrid
	}
	if c.TimeBudget <= 0 {
		c.TimeBudget = DefaultTimeBudget
	}
	return c
}

// Orderer sorts candidates by the configured strategy.
type Orderer struct {
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates an Orderer. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Orderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orderer{config: cfg.normalize(), logger: logger, now: time.Now}
}

// Order computes an ordering score per candidate and returns the list sorted
// descending, ties in stable input order. When the time budget is exceeded
// mid-computation, unprocessed candidates fall back to their raw score —
// ordering degrades rather than blocking the pipeline.
func (o *Orderer) Order(candidates []*candidate.Candidate) []*candidate.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	start := o.now()
	deadline := start.Add(o.config.TimeBudget)
	degraded := 0

	out := make([]*candidate.Candidate, len(candidates))
	copy(out, candidates)

	for _, c := range out {
		if degraded > 0 || o.now().After(deadline) {
			degraded++
			c.SetScore(candidate.ScoreOrdering, c.EffectiveScore())
			continue
		}
		c.SetScore(candidate.ScoreOrdering, o.orderingScore(c))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScoreOrNeutral(candidate.ScoreOrdering) > out[j].ScoreOrNeutral(candidate.ScoreOrdering)
	})

	if degraded > 0 {
		o.logger.Warn("ordering budget exceeded, degraded to raw-score sort",
			zap.Int("degraded", degraded),
			zap.Int("total", len(out)),
			zap.Duration("budget", o.config.TimeBudget),
		)
	}
	return out
}

// orderingScore computes one candidate's score under the active strategy.
func (o *Orderer) orderingScore(c *candidate.Candidate) float64 {
	switch o.config.Strategy {
	case StrategyScore:
		return c.EffectiveScore()
	case StrategyQuality:
		return c.ScoreOrNeutral(candidate.ScoreQuality)
	case StrategyChronological:
		return o.chronologicalScore(c)
	default:
		return o.hybridScore(c)
	}
}

// chronologicalScore ranks web results by freshness decay. Document results
// carry no publish date and sink below any dated web result.
func (o *Orderer) chronologicalScore(c *candidate.Candidate) float64 {
	if c.SourceKind != candidate.SourceWeb || c.PublishedDate == nil {
		return 0
	}
	score := FreshnessAt(*c.PublishedDate, o.now())
	c.SetScore(candidate.ScoreFreshness, score)
	return score
}

// hybridScore blends fused score, quality, and authority. Candidates with no
// usable relevance score renormalize so quality and authority absorb the
// score weight share.
func (o *Orderer) hybridScore(c *candidate.Candidate) float64 {
	_, hasCombined := c.Score(candidate.ScoreCombined)
	hasScore := hasCombined || c.RawScore > 0
	w := o.config.Hybrid.normalize(hasScore)

	score := w.Quality*c.ScoreOrNeutral(candidate.ScoreQuality) +
		w.Authority*c.ScoreOrNeutral(candidate.ScoreAuthority)
	if hasScore {
		score += w.Score * candidate.Clamp01(c.EffectiveScore())
	}
	return score
}

// FreshnessAt scores a publish date against now with stepped decay:
// within 7 days 1.0, then 0.9/0.8/0.7 at the 30/90/180-day boundaries.
// At the 365-day boundary the table resets to 1.0 before resuming decay —
// this inversion mirrors the established scoring behavior and is preserved
// deliberately; see the freshness tests pinning it.
func FreshnessAt(published, now time.Time) float64 {
	days := now.Sub(published).Hours() / 24
	switch {
	case days <= 7:
		return 1.0
	case days <= 30:
		return 0.9
	case days <= 90:
		return 0.8
	case days <= 180:
		return 0.7
	case days <= 365:
		return 1.0
	default:
		decay := 1 - (days-365)/365
		if decay < 0.3 {
			return 0.3
		}
		return decay
	}
}
