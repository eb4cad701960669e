package filter

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
)

// groupKey buckets a candidate for the diversity cap: web candidates group by
// domain, document candidates by their source document.
func groupKey(c *candidate.Candidate) string {
	if d := c.Domain(); d != "" {
		return d
	}
	return "doc:" + c.SourceID
}

// applyDiversityCap bounds results per originating domain and enforces the
// minimum unique-domain ratio. When the ratio is unmet, candidates excluded
// earlier (hard-filtered or capped) whose domain is not yet represented are
// backfilled in their original order.
func (f *Filter) applyDiversityCap(kept, excluded []*candidate.Candidate) []*candidate.Candidate {
	perGroup := make(map[string]int, len(kept))
	capped := make([]*candidate.Candidate, 0, len(kept))
	var overflow []*candidate.Candidate

	for _, c := range kept {
		key := groupKey(c)
		if perGroup[key] >= f.strategy.MaxPerDomain {
			overflow = append(overflow, c)
			continue
		}
		perGroup[key]++
		capped = append(capped, c)
	}

	if len(capped) == 0 {
		return capped
	}

	// Backfill pool: overflow first (already passed the signal stages), then
	// hard-filtered candidates.
	pool := append(overflow, excluded...)
	for _, c := range pool {
		if domainRatio(perGroup, len(capped)) >= f.strategy.MinDomainRatio {
			break
		}
		key := groupKey(c)
		if perGroup[key] > 0 {
			continue // only unrepresented domains improve the ratio
		}
		perGroup[key]++
		capped = append(capped, c)
		f.logger.Debug("backfilled candidate for domain diversity",
			zap.String("domain", key),
			zap.String("source_id", c.SourceID),
		)
	}
	return capped
}

// domainRatio is unique domains ÷ total results.
func domainRatio(perGroup map[string]int, total int) float64 {
	if total == 0 {
		return 1.0
	}
	unique := 0
	for _, n := range perGroup {
		if n > 0 {
			unique++
		}
	}
	return float64(unique) / float64(total)
}
