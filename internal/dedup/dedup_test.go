package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
)

func mk(id, content string, score float64) *candidate.Candidate {
	return &candidate.Candidate{
		SourceID:   id,
		SourceKind: candidate.SourceDocument,
		Content:    content,
		RawScore:   score,
	}
}

func ids(cands []*candidate.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.SourceID
	}
	return out
}

func TestExactDuplicatesKeepHighestScore(t *testing.T) {
	d := New(DefaultConfig(), nil)
	got := d.Deduplicate([]*candidate.Candidate{
		mk("a", "The Quick  Brown Fox", 0.6),
		mk("b", "the quick brown fox", 0.8),
		mk("c", "something else entirely different here", 0.5),
	})

	require.Len(t, got, 2)
	assert.Equal(t, []string{"b", "c"}, ids(got))
	assert.Equal(t, 0.8, got[0].RawScore)
}

func TestNearDuplicateCollapse(t *testing.T) {
	// Trailing period only; the 0.85 similarity pass collapses a/b.
	d := New(Config{Fuzzy: true, NearDuplicateThreshold: 0.95, SimilarityThreshold: 0.85}, nil)
	got := d.Deduplicate([]*candidate.Candidate{
		mk("a", "Paris is the capital of France", 0.9),
		mk("b", "Paris is the capital of France.", 0.7),
		mk("c", "Berlin is the capital of Germany", 0.6),
	})

	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "c"}, ids(got))
	assert.Equal(t, 0.9, got[0].RawScore)
}

func TestSecondPassSkippedWhenNotLower(t *testing.T) {
	// With the similarity threshold not strictly below the near-duplicate
	// threshold only one pass runs; a pair at similarity ~0.9 survives.
	d := New(Config{Fuzzy: true, NearDuplicateThreshold: 0.95, SimilarityThreshold: 0.95}, nil)
	got := d.Deduplicate([]*candidate.Candidate{
		mk("a", "machine learning models require training data", 0.9),
		mk("b", "machine learning models require training data sets", 0.8),
	})
	assert.Len(t, got, 2)

	lower := New(Config{Fuzzy: true, NearDuplicateThreshold: 0.95, SimilarityThreshold: 0.85}, nil)
	got = lower.Deduplicate([]*candidate.Candidate{
		mk("a", "machine learning models require training data", 0.9),
		mk("b", "machine learning models require training data sets", 0.8),
	})
	assert.Len(t, got, 1)
}

func TestIdempotent(t *testing.T) {
	d := New(DefaultConfig(), nil)
	input := []*candidate.Candidate{
		mk("a", "Paris is the capital of France", 0.9),
		mk("b", "Paris is the capital of France.", 0.7),
		mk("c", "Berlin is the capital of Germany", 0.6),
		mk("d", "Berlin is the capital of Germany", 0.5),
	}
	once := d.Deduplicate(input)
	twice := d.Deduplicate(once)
	assert.Equal(t, ids(once), ids(twice))
	assert.Len(t, twice, len(once))
}

func TestNonFuzzyUsesJaccardOnly(t *testing.T) {
	// Same word set in different order: Jaccard 1.0 collapses regardless of
	// character-level differences.
	d := New(Config{Fuzzy: false, NearDuplicateThreshold: 0.95, SimilarityThreshold: 0.9}, nil)
	got := d.Deduplicate([]*candidate.Candidate{
		mk("a", "france capital paris", 0.9),
		mk("b", "paris capital france", 0.5),
	})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].SourceID)
}

func TestMergeUnionsProvenance(t *testing.T) {
	a := mk("a", "identical content", 0.9)
	a.AddOrigin(candidate.Origin{Query: "q1", Channel: candidate.ChannelSemantic})
	b := mk("b", "identical content", 0.7)
	b.AddOrigin(candidate.Origin{Query: "q2", Channel: candidate.ChannelKeyword})

	d := New(DefaultConfig(), nil)
	got := d.Deduplicate([]*candidate.Candidate{a, b})

	require.Len(t, got, 1)
	assert.Len(t, got[0].Provenance, 2)
}

func TestInvalidThresholdsRepaired(t *testing.T) {
	d := New(Config{Fuzzy: true, NearDuplicateThreshold: -3, SimilarityThreshold: 7}, nil)
	assert.Equal(t, DefaultNearDuplicateThreshold, d.config.NearDuplicateThreshold)
	assert.Equal(t, DefaultSimilarityThreshold, d.config.SimilarityThreshold)
}

func TestEmptyAndSingleInput(t *testing.T) {
	d := New(DefaultConfig(), nil)
	assert.Empty(t, d.Deduplicate(nil))
	one := []*candidate.Candidate{mk("a", "only one", 0.5)}
	assert.Equal(t, one, d.Deduplicate(one))
}
