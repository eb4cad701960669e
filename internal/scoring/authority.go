package scoring

import (
	"strings"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
)

// documentAuthority is the fixed score for candidates from the curated
// document index, which sits above an unknown web domain but below
// high-reputation sources.
const documentAuthority = 0.7

// AuthorityScorer scores source reputation from curated domain tiers with
// TLD priors as fallback.
type AuthorityScorer struct {
	tiers map[string]float64
}

// NewAuthorityScorer creates an AuthorityScorer with the built-in reputation
// list. Extra entries override or extend the built-ins.
func NewAuthorityScorer(extra map[string]float64) *AuthorityScorer {
	tiers := map[string]float64{
		"wikipedia.org":       0.9,
		"arxiv.org":           0.9,
		"nature.com":          0.9,
		"acm.org":             0.9,
		"ieee.org":            0.9,
		"nih.gov":             0.9,
		"reuters.com":         0.85,
		"apnews.com":          0.85,
		"bbc.com":             0.85,
		"github.com":          0.8,
		"stackoverflow.com":   0.75,
		"mozilla.org":         0.75,
		"medium.com":          0.55,
		"substack.com":        0.5,
		"quora.com":           0.4,
		"blogspot.com":        0.3,
		"wordpress.com":       0.3,
		"pinterest.com":       0.25,
	}
	for domain, score := range extra {
		tiers[strings.ToLower(domain)] = candidate.Clamp01(score)
	}
	return &AuthorityScorer{tiers: tiers}
}

// Score rates a candidate's source in [0,1]. Document candidates carry the
// fixed curated-index score; web candidates score by domain tier, then by
// TLD prior, then neutral.
func (s *AuthorityScorer) Score(c *candidate.Candidate) float64 {
	if c.SourceKind == candidate.SourceDocument {
		return documentAuthority
	}
	domain := c.Domain()
	if domain == "" {
		return candidate.NeutralScore
	}
	if score, ok := s.lookup(domain); ok {
		return score
	}
	return tldPrior(domain)
}

// lookup matches the domain or any registrable parent (docs.python.org
// matches python.org).
func (s *AuthorityScorer) lookup(domain string) (float64, bool) {
	for {
		if score, ok := s.tiers[domain]; ok {
			return score, true
		}
		i := strings.Index(domain, ".")
		if i < 0 {
			return 0, false
		}
		parent := domain[i+1:]
		if !strings.Contains(parent, ".") {
			return 0, false // bare TLD, handled by tldPrior
		}
		domain = parent
	}
}

// tldPrior assigns a weak prior from the top-level domain.
func tldPrior(domain string) float64 {
	switch {
	case strings.HasSuffix(domain, ".gov"), strings.HasSuffix(domain, ".edu"):
		return 0.85
	case strings.HasSuffix(domain, ".org"):
		return 0.6
	case strings.HasSuffix(domain, ".io"), strings.HasSuffix(domain, ".dev"):
		return 0.55
	default:
		return candidate.NeutralScore
	}
}
