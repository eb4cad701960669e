// Package scoring provides the content-quality and domain-authority scorers
// consumed by the strategy filter. Both are pure functions of the candidate,
// producing scores in [0,1].
package scoring

import (
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
	"github.com/fyrsmithlabs/rankd/internal/textsim"
)

// Content-length bands for the quality heuristic, in characters.
const (
	qualityMinLength  = 50
	qualityIdealLower = 200
	qualityIdealUpper = 2000
	qualityUpperBound = 6000
)

// QualityScorer scores content quality from text heuristics: length band,
// lexical diversity, sentence structure, and shouting/noise ratio.
type QualityScorer struct{}

// NewQualityScorer creates a QualityScorer.
func NewQualityScorer() *QualityScorer {
	return &QualityScorer{}
}

// Score rates a candidate's content in [0,1]. Empty content scores 0.
func (s *QualityScorer) Score(c *candidate.Candidate) float64 {
	content := strings.TrimSpace(c.Content)
	if content == "" {
		return 0
	}

	score := candidate.NeutralScore
	score += lengthSignal(len(content))
	score += diversitySignal(content)
	score += structureSignal(content)
	score -= noiseSignal(content)
	if c.Title != "" || c.DocumentName != "" {
		score += 0.05
	}
	return candidate.Clamp01(score)
}

// lengthSignal rewards excerpts in the ideal band and penalizes fragments
// and walls of text.
func lengthSignal(n int) float64 {
	switch {
	case n < qualityMinLength:
		return -0.25
	case n >= qualityIdealLower && n <= qualityIdealUpper:
		return 0.2
	case n > qualityUpperBound:
		return -0.1
	default:
		return 0.05
	}
}

// diversitySignal rewards lexical variety: unique words over total words.
func diversitySignal(content string) float64 {
	words := textsim.Words(content)
	if len(words) < 5 {
		return 0
	}
	unique := make(map[string]bool, len(words))
	for _, w := range words {
		unique[w] = true
	}
	ratio := float64(len(unique)) / float64(len(words))
	// Heavily repetitive text (boilerplate, keyword stuffing) drags down.
	if ratio < 0.3 {
		return -0.2
	}
	if ratio > 0.6 {
		return 0.1
	}
	return 0
}

// structureSignal rewards sentence punctuation, a weak proxy for prose over
// scraped fragments.
func structureSignal(content string) float64 {
	sentences := strings.Count(content, ". ") + strings.Count(content, "! ") + strings.Count(content, "? ")
	if strings.HasSuffix(content, ".") || strings.HasSuffix(content, "!") || strings.HasSuffix(content, "?") {
		sentences++
	}
	if sentences >= 2 {
		return 0.1
	}
	if sentences == 1 {
		return 0.05
	}
	return 0
}

// noiseSignal penalizes shouting: a high ratio of uppercase letters.
func noiseSignal(content string) float64 {
	letters, upper := 0, 0
	for _, r := range content {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0.2
	}
	if float64(upper)/float64(letters) > 0.3 {
		return 0.2
	}
	return 0
}
