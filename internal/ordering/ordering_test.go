package ordering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
)

func mk(id string, raw float64) *candidate.Candidate {
	return &candidate.Candidate{
		SourceID:   id,
		SourceKind: candidate.SourceDocument,
		Content:    "content " + id,
		RawScore:   raw,
	}
}

func ids(cands []*candidate.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.SourceID
	}
	return out
}

func TestFreshnessDecayTable(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		days int
		want float64
	}{
		{name: "three days", days: 3, want: 1.0},
		{name: "boundary week", days: 7, want: 1.0},
		{name: "two weeks", days: 14, want: 0.9},
		{name: "two months", days: 60, want: 0.8},
		{name: "five months", days: 150, want: 0.7},
		// The 365-day bucket resets to 1.0; pinned on purpose, see FreshnessAt.
		{name: "eleven months", days: 330, want: 1.0},
		{name: "just past a year", days: 400, want: 1 - 35.0/365.0},
		{name: "three years", days: 1095, want: 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			published := now.AddDate(0, 0, -tt.days)
			assert.InDelta(t, tt.want, FreshnessAt(published, now), 1e-9)
		})
	}
}

func TestFreshness400DaysScenario(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	published := now.AddDate(0, 0, -400)
	assert.InDelta(t, 0.904, FreshnessAt(published, now), 0.001)
}

func TestScoreStrategy(t *testing.T) {
	o := New(Config{Strategy: StrategyScore}, nil)
	got := o.Order([]*candidate.Candidate{mk("b", 0.5), mk("a", 0.9), mk("c", 0.1)})
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestQualityStrategy(t *testing.T) {
	hiQuality := mk("quality", 0.1)
	hiQuality.SetScore(candidate.ScoreQuality, 0.95)
	hiScore := mk("score", 0.9)
	hiScore.SetScore(candidate.ScoreQuality, 0.2)

	o := New(Config{Strategy: StrategyQuality}, nil)
	got := o.Order([]*candidate.Candidate{hiScore, hiQuality})
	assert.Equal(t, []string{"quality", "score"}, ids(got))
}

func TestChronologicalStrategy(t *testing.T) {
	recent := time.Now().AddDate(0, 0, -3)
	old := time.Now().AddDate(0, 0, -100)

	newer := mk("newer", 0.1)
	newer.SourceKind = candidate.SourceWeb
	newer.PublishedDate = &recent
	older := mk("older", 0.9)
	older.SourceKind = candidate.SourceWeb
	older.PublishedDate = &old
	document := mk("doc", 0.95)

	o := New(Config{Strategy: StrategyChronological}, nil)
	got := o.Order([]*candidate.Candidate{older, document, newer})

	assert.Equal(t, []string{"newer", "older", "doc"}, ids(got))
	f, ok := newer.Score(candidate.ScoreFreshness)
	require.True(t, ok)
	assert.Equal(t, 1.0, f)
}

func TestHybridStrategy(t *testing.T) {
	balanced := mk("balanced", 0.8)
	balanced.SetScore(candidate.ScoreQuality, 0.8)
	balanced.SetScore(candidate.ScoreAuthority, 0.8)

	lowAuthority := mk("low-authority", 0.9)
	lowAuthority.SetScore(candidate.ScoreQuality, 0.9)
	lowAuthority.SetScore(candidate.ScoreAuthority, 0.0)

	o := New(Config{Strategy: StrategyHybrid, Hybrid: HybridWeights{Score: 0.4, Quality: 0.3, Authority: 0.3}}, nil)
	got := o.Order([]*candidate.Candidate{lowAuthority, balanced})

	// balanced: 0.4*0.8+0.3*0.8+0.3*0.8 = 0.80
	// low-authority: 0.4*0.9+0.3*0.9+0.3*0.0 = 0.63
	assert.Equal(t, []string{"balanced", "low-authority"}, ids(got))
}

func TestHybridRenormalizesWithoutRawScore(t *testing.T) {
	unscored := mk("unscored", 0)
	unscored.SetScore(candidate.ScoreQuality, 0.9)
	unscored.SetScore(candidate.ScoreAuthority, 0.7)

	o := New(Config{Strategy: StrategyHybrid, Hybrid: HybridWeights{Score: 0.6, Quality: 0.2, Authority: 0.2}}, nil)
	got := o.Order([]*candidate.Candidate{unscored})

	// Score weight share redistributes: quality and authority renormalize to
	// 0.5 each -> 0.5*0.9 + 0.5*0.7 = 0.8.
	s, ok := got[0].Score(candidate.ScoreOrdering)
	require.True(t, ok)
	assert.InDelta(t, 0.8, s, 1e-9)
}

func TestBudgetOverrunDegradesToRawScore(t *testing.T) {
	o := New(Config{Strategy: StrategyQuality, TimeBudget: 10 * time.Millisecond}, nil)

	// Fake clock: the deadline passes after the first candidate.
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	o.now = func() time.Time {
		calls++
		if calls <= 2 { // start + first candidate check
			return base
		}
		return base.Add(time.Second)
	}

	first := mk("first", 0.1)
	first.SetScore(candidate.ScoreQuality, 0.9)
	second := mk("second", 0.4)
	second.SetScore(candidate.ScoreQuality, 0.95)
	third := mk("third", 0.8)
	third.SetScore(candidate.ScoreQuality, 0.99)

	got := o.Order([]*candidate.Candidate{first, second, third})

	// Only "first" was scored by quality (0.9); the remainder degraded to
	// raw scores (0.4, 0.8).
	assert.Equal(t, []string{"first", "third", "second"}, ids(got))
}

func TestUnknownStrategyDefaultsHybrid(t *testing.T) {
	o := New(Config{Strategy: "bogus"}, nil)
	assert.Equal(t, StrategyHybrid, o.config.Strategy)
}

func TestStableTies(t *testing.T) {
	o := New(Config{Strategy: StrategyScore}, nil)
	got := o.Order([]*candidate.Candidate{mk("a", 0.5), mk("b", 0.5), mk("c", 0.5)})
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}
