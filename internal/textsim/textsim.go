// Package textsim provides the text similarity primitives used by the
// deduplication and diversity stages: character-level similarity via longest
// common subsequence, word-level Jaccard similarity, and a normalized content
// hash for exact-duplicate detection.
package textsim

import (
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Normalize lowercases text and collapses all whitespace runs to single
// spaces. Two candidates whose normalized content is equal are considered
// exact duplicates.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// ContentHash returns a cheap hash of the normalized content. Collisions are
// possible and callers must verify with CharacterSimilarity before treating
// two candidates as exact duplicates.
func ContentHash(text string) uint64 {
	return xxhash.Sum64String(Normalize(text))
}

// CharacterSimilarity returns the length of the longest common subsequence of
// a and b divided by the length of the longer string. It is symmetric and
// returns 1.0 when both strings are empty, 0.0 when exactly one is.
func CharacterSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	lcs := lcsLength(ra, rb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return float64(lcs) / float64(maxLen)
}

// lcsLength computes the longest-common-subsequence length with a rolling
// two-row table, O(len(a)*len(b)) time and O(min-row) space. Candidate
// excerpts are short enough that this stays well inside the stage budget.
func lcsLength(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// WordJaccardSimilarity returns |A∩B| / |A∪B| over the word sets of a and b.
// Words are lowercased and split on any non-letter/non-digit rune. Symmetric;
// 1.0 when both are empty, 0.0 when exactly one is.
func WordJaccardSimilarity(a, b string) float64 {
	setA, setB := wordSet(a), wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// CombinedSimilarity blends character and word similarity, weighting the
// character channel at 0.6 and the word channel at 0.4. Used by fuzzy
// deduplication.
func CombinedSimilarity(a, b string) float64 {
	return 0.6*CharacterSimilarity(a, b) + 0.4*WordJaccardSimilarity(a, b)
}

// wordSet tokenizes text into a set of lowercase words.
func wordSet(text string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Words returns the lowercase word list of text, preserving order and
// duplicates. Used by topic matching, which counts word hits rather than
// set overlap.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
