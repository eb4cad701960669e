package filter

import (
	"strings"
	"time"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
	"github.com/fyrsmithlabs/rankd/internal/textsim"
)

// timeRangeDecayWindow is the span over which an out-of-window publish date
// linearly decays toward the penalty cap.
const timeRangeDecayWindow = 365 * 24 * time.Hour

// timeRangeFloor caps the out-of-window penalty at 80%.
const timeRangeFloor = 0.2

// TimeWindow is a requested publish-date range. A zero bound is open.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether no window was requested.
func (w TimeWindow) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// contains reports whether t falls inside the window.
func (w TimeWindow) contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// distance returns how far t lies outside the window.
func (w TimeWindow) distance(t time.Time) time.Duration {
	if !w.From.IsZero() && t.Before(w.From) {
		return w.From.Sub(t)
	}
	if !w.To.IsZero() && t.After(w.To) {
		return t.Sub(w.To)
	}
	return 0
}

// timeRangeScore scores a candidate against the requested window: 1.0 inside,
// a linear decay down to the 80%-penalty floor outside, and a fixed
// missing-date penalty when no publish date is known.
func timeRangeScore(c *candidate.Candidate, window TimeWindow, missingDatePenalty float64) float64 {
	if c.PublishedDate == nil {
		return candidate.Clamp01(1 - missingDatePenalty)
	}
	if window.contains(*c.PublishedDate) {
		return 1.0
	}
	outside := window.distance(*c.PublishedDate)
	score := 1 - outside.Hours()/timeRangeDecayWindow.Hours()
	if score < timeRangeFloor {
		return timeRangeFloor
	}
	return score
}

// topicMatchScore scores how well a candidate matches a topic phrase. An
// exact substring match of the whole phrase scores 1.0; otherwise the score
// is the fraction of topic words (two or more characters) found in the
// title and content.
func topicMatchScore(c *candidate.Candidate, topic string) float64 {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return 1.0
	}
	haystack := textsim.Normalize(c.Title + " " + c.Content)
	if strings.Contains(haystack, textsim.Normalize(topic)) {
		return 1.0
	}

	words := textsim.Words(topic)
	total, found := 0, 0
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		total++
		if strings.Contains(haystack, w) {
			found++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(found) / float64(total)
}
