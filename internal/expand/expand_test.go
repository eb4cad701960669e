package expand

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel returns canned output and counts calls.
type fakeModel struct {
	output string
	err    error
	calls  int
}

func (m *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.output}},
	}, nil
}

func (m *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	m.calls++
	return m.output, m.err
}

func TestExpandReturnsOriginalFirst(t *testing.T) {
	model := &fakeModel{output: `{"variations": ["capital city of France", "what city is France's capital"]}`}
	e := New(model, DefaultConfig(), nil)

	got := e.Expand(context.Background(), "capital of France", "")

	require.Len(t, got, 3)
	assert.Equal(t, "capital of France", got[0])
	assert.Equal(t, "capital city of France", got[1])
}

func TestExpandModelFailureFallsBack(t *testing.T) {
	model := &fakeModel{err: errors.New("rate limited")}
	e := New(model, DefaultConfig(), nil)

	got := e.Expand(context.Background(), "capital of France", "")
	assert.Equal(t, []string{"capital of France"}, got)
}

func TestExpandUnparseableOutputFallsBack(t *testing.T) {
	outputs := []string{
		"I cannot help with that.",
		`{"variations": "not a list"}`,
		"",
	}
	for _, output := range outputs {
		e := New(&fakeModel{output: output}, DefaultConfig(), nil)
		got := e.Expand(context.Background(), "some query", "")
		assert.Equal(t, []string{"some query"}, got, "output: %q", output)
	}
}

func TestExpandToleratesCodeFences(t *testing.T) {
	model := &fakeModel{output: "```json\n{\"variations\": [\"alt phrasing\"]}\n```"}
	e := New(model, DefaultConfig(), nil)

	got := e.Expand(context.Background(), "original", "")
	assert.Equal(t, []string{"original", "alt phrasing"}, got)
}

func TestExpandDeduplicatesCaseInsensitive(t *testing.T) {
	model := &fakeModel{output: `{"variations": ["Capital Of France", "capital of  france", "french capital"]}`}
	cfg := DefaultConfig()
	cfg.MaxVariations = 5
	e := New(model, cfg, nil)

	got := e.Expand(context.Background(), "capital of France", "")

	// Both model echoes normalize to the original; only the new phrasing
	// survives, in first-seen order.
	assert.Equal(t, []string{"capital of France", "french capital"}, got)
}

func TestExpandCapsVariations(t *testing.T) {
	model := &fakeModel{output: `{"variations": ["one", "two", "three", "four", "five"]}`}
	e := New(model, DefaultConfig(), nil) // max 3

	got := e.Expand(context.Background(), "query", "")
	assert.Len(t, got, 3)
}

func TestExpandCachesSuccess(t *testing.T) {
	model := &fakeModel{output: `{"variations": ["other phrasing"]}`}
	e := New(model, DefaultConfig(), nil)

	first := e.Expand(context.Background(), "Some Query", "")
	second := e.Expand(context.Background(), "some   query", "") // same normalized key

	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.calls)
	assert.Equal(t, 1, e.CacheSize())
}

func TestExpandDoesNotCacheFailures(t *testing.T) {
	model := &fakeModel{err: errors.New("boom")}
	e := New(model, DefaultConfig(), nil)

	e.Expand(context.Background(), "query", "")
	e.Expand(context.Background(), "query", "")

	assert.Equal(t, 2, model.calls)
	assert.Equal(t, 0, e.CacheSize())
}

func TestExpandNilModelIdentity(t *testing.T) {
	e := New(nil, DefaultConfig(), nil)
	assert.Equal(t, []string{"query"}, e.Expand(context.Background(), "query", ""))
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newRewriteCache(time.Hour, 10)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.put("key", []string{"a"})
	_, ok := c.get("key")
	assert.True(t, ok)

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, ok = c.get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, c.size())
}

func TestCacheBoundedEviction(t *testing.T) {
	c := newRewriteCache(time.Hour, 2)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	c.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	c.put("a", []string{"1"})
	c.put("b", []string{"2"})
	c.put("c", []string{"3"}) // evicts "a", the stalest

	_, okA := c.get("a")
	_, okB := c.get("b")
	_, okC := c.get("c")
	assert.False(t, okA)
	assert.True(t, okB)
	assert.True(t, okC)
}

func TestParseVariationsEmptyObject(t *testing.T) {
	got, err := parseVariations(`{"variations": []}`)
	require.NoError(t, err)
	assert.Empty(t, got)
}
