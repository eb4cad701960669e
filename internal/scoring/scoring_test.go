package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
)

func TestQualityScoreBounds(t *testing.T) {
	s := NewQualityScorer()
	contents := []string{
		"",
		"tiny",
		strings.Repeat("spam ", 500),
		"A well-formed paragraph about retrieval systems. It has several sentences with varied vocabulary. Rankers benefit from clean prose and structure.",
		strings.Repeat("THIS IS ALL CAPS NOISE! ", 20),
	}
	for _, content := range contents {
		got := s.Score(&candidate.Candidate{Content: content})
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestQualityPrefersProse(t *testing.T) {
	s := NewQualityScorer()
	prose := &candidate.Candidate{
		Title: "Retrieval pipelines",
		Content: "Retrieval pipelines combine several ranked sources into one context. " +
			"Each source scores candidates on its own scale. Normalizing before fusion keeps " +
			"the comparison fair across sources with different score ranges.",
	}
	fragment := &candidate.Candidate{Content: "click here"}
	repetitive := &candidate.Candidate{Content: strings.Repeat("buy now ", 100)}

	assert.Greater(t, s.Score(prose), s.Score(fragment))
	assert.Greater(t, s.Score(prose), s.Score(repetitive))
}

func TestQualityEmptyContentScoresZero(t *testing.T) {
	s := NewQualityScorer()
	assert.Equal(t, 0.0, s.Score(&candidate.Candidate{Content: "   "}))
}

func TestAuthorityTiers(t *testing.T) {
	s := NewAuthorityScorer(nil)
	tests := []struct {
		name string
		url  string
		want float64
	}{
		{name: "high tier", url: "https://en.wikipedia.org/wiki/Go", want: 0.9},
		{name: "subdomain matches parent", url: "https://lists.acm.org/page", want: 0.9},
		{name: "low tier", url: "https://someone.blogspot.com/post", want: 0.3},
		{name: "gov prior", url: "https://data.census.gov/table", want: 0.85},
		{name: "org prior", url: "https://unknown-nonprofit.org/about", want: 0.6},
		{name: "unknown com is neutral", url: "https://random-site-xyz.com/", want: candidate.NeutralScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &candidate.Candidate{SourceKind: candidate.SourceWeb, URL: tt.url}
			assert.Equal(t, tt.want, s.Score(c))
		})
	}
}

func TestAuthorityDocumentsFixedScore(t *testing.T) {
	s := NewAuthorityScorer(nil)
	c := &candidate.Candidate{SourceKind: candidate.SourceDocument, SourceID: "doc-1"}
	assert.Equal(t, documentAuthority, s.Score(c))
}

func TestAuthorityExtraEntriesOverride(t *testing.T) {
	s := NewAuthorityScorer(map[string]float64{"Medium.com": 0.9, "internal.corp": 2.0})
	c := &candidate.Candidate{SourceKind: candidate.SourceWeb, URL: "https://medium.com/x"}
	assert.Equal(t, 0.9, s.Score(c))

	corp := &candidate.Candidate{SourceKind: candidate.SourceWeb, URL: "https://internal.corp/doc"}
	assert.Equal(t, 1.0, s.Score(corp)) // clamped
}

func TestAuthorityMissingURLNeutral(t *testing.T) {
	s := NewAuthorityScorer(nil)
	c := &candidate.Candidate{SourceKind: candidate.SourceWeb}
	assert.Equal(t, candidate.NeutralScore, s.Score(c))
}
