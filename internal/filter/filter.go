// Package filter applies a named filtering policy to the candidate set.
// Each signal category (time-range, topic-match, quality, authority) carries
// a threshold and acts either as a hard filter (exclude below threshold) or
// as a ranking penalty (retain, multiply score by 1-penaltyFactor). A domain
// diversity cap bounds results per originating domain and backfills excluded
// candidates when domain diversity falls below a minimum ratio.
package filter

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
)

// QualityScorer produces a [0,1] content-quality score for a candidate.
type QualityScorer interface {
	Score(c *candidate.Candidate) float64
}

// AuthorityScorer produces a [0,1] source-reputation score for a candidate.
type AuthorityScorer interface {
	Score(c *candidate.Candidate) float64
}

// Filter applies one strategy to candidate sets. Stages run in a fixed
// order: quality, then authority, then the diversity cap. Time-range and
// topic filtering are applied earlier by the caller, once the cutoff date
// and topic context are known, through ApplyTimeRange and ApplyTopic.
type Filter struct {
	strategy  Strategy
	quality   QualityScorer
	authority AuthorityScorer
	logger    *zap.Logger
}

// New creates a Filter. Nil scorers score every candidate at the neutral
// default. A nil logger disables logging.
func New(strategy Strategy, quality QualityScorer, authority AuthorityScorer, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{
		strategy:  strategy.normalize(),
		quality:   quality,
		authority: authority,
		logger:    logger,
	}
}

// Strategy returns the normalized strategy in effect.
func (f *Filter) Strategy() Strategy {
	return f.strategy
}

// Apply runs the quality, authority, and diversity stages and returns the
// surviving candidates in stable input order (diversity backfill appends).
func (f *Filter) Apply(candidates []*candidate.Candidate) []*candidate.Candidate {
	kept, excluded := f.applyRule(candidates, f.strategy.Quality, candidate.ScoreQuality, CategoryQuality, f.qualityScore)

	var dropped []*candidate.Candidate
	kept, dropped = f.applyRule(kept, f.strategy.Authority, candidate.ScoreAuthority, CategoryAuthority, f.authorityScore)
	excluded = append(excluded, dropped...)

	kept = f.applyDiversityCap(kept, excluded)

	f.logger.Debug("applied filter strategy",
		zap.String("mode", string(f.strategy.Mode)),
		zap.Int("input", len(candidates)),
		zap.Int("kept", len(kept)),
	)
	return kept
}

// ApplyTimeRange filters against a requested publish-date window using the
// strategy's time-range rule.
func (f *Filter) ApplyTimeRange(candidates []*candidate.Candidate, window TimeWindow) []*candidate.Candidate {
	if window.IsZero() {
		return candidates
	}
	kept, _ := f.applyRule(candidates, f.strategy.TimeRange, candidate.ScoreTimeRange, CategoryTimeRange,
		func(c *candidate.Candidate) float64 {
			return timeRangeScore(c, window, f.strategy.MissingDatePenalty)
		})
	return kept
}

// ApplyTopic filters against a topic phrase using the strategy's topic-match
// rule.
func (f *Filter) ApplyTopic(candidates []*candidate.Candidate, topic string) []*candidate.Candidate {
	if topic == "" {
		return candidates
	}
	kept, _ := f.applyRule(candidates, f.strategy.TopicMatch, candidate.ScoreTopicMatch, CategoryTopicMatch,
		func(c *candidate.Candidate) float64 {
			return topicMatchScore(c, topic)
		})
	return kept
}

// applyRule scores every candidate, records the derived score, and applies
// the rule's hard-filter or penalty behavior for scores below threshold.
func (f *Filter) applyRule(
	candidates []*candidate.Candidate,
	rule CategoryRule,
	kind candidate.ScoreKind,
	category string,
	signal func(*candidate.Candidate) float64,
) (kept, excluded []*candidate.Candidate) {
	kept = make([]*candidate.Candidate, 0, len(candidates))
	for _, c := range candidates {
		score := candidate.Clamp01(signal(c))
		c.SetScore(kind, score)
		if score >= rule.Threshold {
			kept = append(kept, c)
			continue
		}
		if rule.UseHardFilter {
			excluded = append(excluded, c)
			continue
		}
		penalize(c, category, rule.PenaltyFactor)
		kept = append(kept, c)
	}
	return kept, excluded
}

// penalize downweights a retained candidate's ranking scores and records the
// factor for auditability.
func penalize(c *candidate.Candidate, category string, factor float64) {
	if factor <= 0 {
		return
	}
	c.RawScore *= 1 - factor
	if combined, ok := c.Score(candidate.ScoreCombined); ok {
		c.SetScore(candidate.ScoreCombined, combined*(1-factor))
	}
	c.RecordPenalty(category, factor)
}

func (f *Filter) qualityScore(c *candidate.Candidate) float64 {
	if f.quality == nil {
		return candidate.NeutralScore
	}
	return f.quality.Score(c)
}

func (f *Filter) authorityScore(c *candidate.Candidate) float64 {
	if f.authority == nil {
		return candidate.NeutralScore
	}
	return f.authority.Score(c)
}
