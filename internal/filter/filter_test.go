package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
)

type scorerFunc func(c *candidate.Candidate) float64

func (f scorerFunc) Score(c *candidate.Candidate) float64 { return f(c) }

// fixedScores returns a scorer that looks up by SourceID, defaulting to 1.0.
func fixedScores(scores map[string]float64) scorerFunc {
	return func(c *candidate.Candidate) float64 {
		if s, ok := scores[c.SourceID]; ok {
			return s
		}
		return 1.0
	}
}

func web(id, url string, score float64) *candidate.Candidate {
	return &candidate.Candidate{
		SourceID:   id,
		SourceKind: candidate.SourceWeb,
		URL:        url,
		Content:    "content for " + id,
		RawScore:   score,
	}
}

func doc(id string, score float64) *candidate.Candidate {
	return &candidate.Candidate{
		SourceID:   id,
		SourceKind: candidate.SourceDocument,
		Content:    "content for " + id,
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

func TestStrictHardFilterExcludes(t *testing.T) {
	quality := fixedScores(map[string]float64{"low": 0.2, "high": 0.9})
	f := New(StrictStrategy(), quality, nil, nil)

	// Strict authority is also a hard filter; nil scorer yields neutral 0.5
	// which is below the 0.6 strict threshold, so neutralize it here.
	strategy := f.Strategy()
	strategy.Authority = CategoryRule{Threshold: 0, UseHardFilter: true}
	strategy.MinDomainRatio = 0
	f = New(strategy, quality, nil, nil)

	got := f.Apply([]*candidate.Candidate{doc("high", 0.9), doc("low", 0.8)})

	require.Len(t, got, 1)
	assert.Equal(t, "high", got[0].SourceID)
	q, _ := got[0].Score(candidate.ScoreQuality)
	assert.GreaterOrEqual(t, q, StrictStrategy().Quality.Threshold)
}

func TestSoftPenaltyRetainsWithLowerScore(t *testing.T) {
	quality := fixedScores(map[string]float64{"weak": 0.2})
	strategy := ModerateStrategy()
	f := New(strategy, quality, fixedScores(nil), nil)

	weak := doc("weak", 0.8)
	got := f.Apply([]*candidate.Candidate{weak})

	require.Len(t, got, 1)
	assert.Less(t, got[0].RawScore, 0.8)
	assert.InDelta(t, 0.8*(1-strategy.Quality.PenaltyFactor), got[0].RawScore, 1e-9)
	assert.InDelta(t, strategy.Quality.PenaltyFactor, got[0].Penalties[CategoryQuality], 1e-9)
}

func TestQualityThenAuthorityOrder(t *testing.T) {
	// A candidate hard-dropped by quality never reaches the authority scorer.
	var authoritySaw []string
	authority := scorerFunc(func(c *candidate.Candidate) float64 {
		authoritySaw = append(authoritySaw, c.SourceID)
		return 1.0
	})
	quality := fixedScores(map[string]float64{"bad": 0.0})
	strategy := ModerateStrategy()
	strategy.Quality.UseHardFilter = true
	f := New(strategy, quality, authority, nil)

	f.Apply([]*candidate.Candidate{doc("bad", 0.5), doc("good", 0.5)})

	assert.Equal(t, []string{"good"}, authoritySaw)
}

func TestTimeRangeScoring(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	window := TimeWindow{From: now.AddDate(0, -1, 0), To: now}

	inside := now.AddDate(0, 0, -10)
	outside := now.AddDate(0, 0, -104) // ~73 days before window start

	strategy := ModerateStrategy()
	f := New(strategy, nil, nil, nil)

	in := web("in", "https://a.example/1", 0.9)
	in.PublishedDate = &inside
	out := web("out", "https://b.example/2", 0.9)
	out.PublishedDate = &outside
	undated := web("undated", "https://c.example/3", 0.9)

	got := f.ApplyTimeRange([]*candidate.Candidate{in, out, undated}, window)
	require.Len(t, got, 3)

	sIn, _ := in.Score(candidate.ScoreTimeRange)
	sOut, _ := out.Score(candidate.ScoreTimeRange)
	sUndated, _ := undated.Score(candidate.ScoreTimeRange)

	assert.Equal(t, 1.0, sIn)
	assert.InDelta(t, 1-73.0/365.0, sOut, 1e-6)
	assert.InDelta(t, 1-strategy.MissingDatePenalty, sUndated, 1e-9)
}

func TestTimeRangePenaltyCappedAt80Percent(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	window := TimeWindow{From: now.AddDate(0, -1, 0), To: now}
	ancient := now.AddDate(-10, 0, 0)

	f := New(LenientStrategy(), nil, nil, nil)
	c := web("old", "https://old.example/1", 0.9)
	c.PublishedDate = &ancient

	f.ApplyTimeRange([]*candidate.Candidate{c}, window)
	s, _ := c.Score(candidate.ScoreTimeRange)
	assert.Equal(t, 0.2, s)
}

func TestMissingDateHeavierUnderStrict(t *testing.T) {
	assert.Greater(t, StrictStrategy().MissingDatePenalty, ModerateStrategy().MissingDatePenalty)
	assert.Greater(t, ModerateStrategy().MissingDatePenalty, LenientStrategy().MissingDatePenalty)
}

func TestTopicMatchScoring(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		topic   string
		want    float64
	}{
		{name: "exact phrase", title: "", content: "The Transformer architecture changed NLP", topic: "transformer architecture", want: 1.0},
		{name: "partial words", title: "Neural networks", content: "gradient descent basics", topic: "neural gradient pruning", want: 2.0 / 3.0},
		{name: "no match", title: "Cooking", content: "pasta recipes", topic: "quantum computing", want: 0.0},
		// "c" is below the two-character minimum; of the counted words only
		// "vitamin" appears.
		{name: "short words ignored", title: "", content: "vitamin c research", topic: "c zq vitamin", want: 0.5},
		{name: "empty topic neutral", title: "", content: "anything", topic: "", want: 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &candidate.Candidate{Title: tt.title, Content: tt.content}
			assert.InDelta(t, tt.want, topicMatchScore(c, tt.topic), 1e-9)
		})
	}
}

func TestDiversityCapPerDomain(t *testing.T) {
	strategy := ModerateStrategy()
	strategy.MaxPerDomain = 2
	strategy.MinDomainRatio = 0
	f := New(strategy, fixedScores(nil), fixedScores(nil), nil)

	got := f.Apply([]*candidate.Candidate{
		web("a1", "https://a.example/1", 0.9),
		web("a2", "https://a.example/2", 0.8),
		web("a3", "https://a.example/3", 0.7),
		web("b1", "https://b.example/1", 0.6),
	})

	assert.Equal(t, []string{"a1", "a2", "b1"}, ids(got))
}

func TestDiversityRatioBackfill(t *testing.T) {
	// Hard quality filter drops the only candidate from b.example; the
	// unmet domain ratio backfills it.
	strategy := ModerateStrategy()
	strategy.Quality = CategoryRule{Threshold: 0.5, UseHardFilter: true}
	strategy.MaxPerDomain = 3
	strategy.MinDomainRatio = 0.6
	quality := fixedScores(map[string]float64{"b1": 0.1})
	f := New(strategy, quality, fixedScores(nil), nil)

	got := f.Apply([]*candidate.Candidate{
		web("a1", "https://a.example/1", 0.9),
		web("a2", "https://a.example/2", 0.8),
		web("a3", "https://a.example/3", 0.7),
		web("b1", "https://b.example/1", 0.6),
	})

	// 1 unique domain / 3 results = 0.33 < 0.6 -> b1 backfilled -> 2/4 = 0.5,
	// pool exhausted.
	assert.Equal(t, []string{"a1", "a2", "a3", "b1"}, ids(got))
}

func TestStrategyForUnknownModeDefaultsModerate(t *testing.T) {
	assert.Equal(t, ModeModerate, StrategyFor("bogus").Mode)
	assert.Equal(t, ModeStrict, StrategyFor(ModeStrict).Mode)
	assert.Equal(t, ModeLenient, StrategyFor(ModeLenient).Mode)
}

func TestStrategyNormalizeRepairsValues(t *testing.T) {
	s := Strategy{
		Mode:               ModeCustom,
		Quality:            CategoryRule{Threshold: 3, PenaltyFactor: -1},
		MissingDatePenalty: 9,
		MaxPerDomain:       -2,
		MinDomainRatio:     1.5,
	}
	f := New(s, nil, nil, nil)
	norm := f.Strategy()

	assert.Equal(t, 1.0, norm.Quality.Threshold)
	assert.Equal(t, 0.0, norm.Quality.PenaltyFactor)
	assert.Equal(t, 1.0, norm.MissingDatePenalty)
	assert.Equal(t, ModerateStrategy().MaxPerDomain, norm.MaxPerDomain)
	assert.Equal(t, 1.0, norm.MinDomainRatio)
}
