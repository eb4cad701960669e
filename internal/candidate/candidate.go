// Package candidate defines the unit that flows through every stage of the
// retrieval pipeline: a passage retrieved from a document index or the web,
// together with the scores and penalties each stage accumulates on it.
package candidate

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SourceKind identifies where a candidate originated.
type SourceKind string

const (
	// SourceDocument marks a candidate retrieved from an indexed document chunk.
	SourceDocument SourceKind = "document"
	// SourceWeb marks a candidate retrieved from the web-search provider.
	SourceWeb SourceKind = "web"
)

// RetrievalChannel identifies which lookup produced a candidate. A candidate
// scored by both the semantic and keyword channels is tagged ChannelBoth by
// the score fuser.
type RetrievalChannel string

const (
	ChannelSemantic RetrievalChannel = "semantic"
	ChannelKeyword  RetrievalChannel = "keyword"
	ChannelWeb      RetrievalChannel = "web"
	ChannelBoth     RetrievalChannel = "both"
)

// ScoreKind names a derived score accumulated on a candidate. All derived
// scores are in [0,1].
type ScoreKind string

const (
	ScoreQuality    ScoreKind = "quality"
	ScoreAuthority  ScoreKind = "authority"
	ScoreFreshness  ScoreKind = "freshness"
	ScoreTopicMatch ScoreKind = "topic_match"
	ScoreTimeRange  ScoreKind = "time_range"
	ScoreCombined   ScoreKind = "combined"
	ScoreOrdering   ScoreKind = "ordering"
)

// NeutralScore is the default for a signal that is absent but unknown. It is
// deliberately neither 0 nor 1 so missing data does not bias ranking.
const NeutralScore = 0.5

// Origin records which query variation and retrieval channel produced a
// candidate. A candidate surfaced by several variations or channels carries
// one Origin per hit.
type Origin struct {
	Query   string           `json:"query"`
	Channel RetrievalChannel `json:"channel"`
}

// Candidate is one retrieved passage. It is created by the retriever and
// enriched in place by each later stage; stages append or update derived
// scores but never remove fields.
type Candidate struct {
	// SourceID is the stable identifier of the originating document chunk or
	// web page. Together with SourceKind (and ChunkIndex for documents) it
	// uniquely identifies a candidate prior to fuzzy deduplication.
	SourceID   string     `json:"source_id"`
	SourceKind SourceKind `json:"source_kind"`
	ChunkIndex int        `json:"chunk_index,omitempty"`

	Content      string `json:"content"`
	Title        string `json:"title,omitempty"`
	DocumentName string `json:"document_name,omitempty"`

	// Web-only fields.
	URL           string     `json:"url,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	Author        string     `json:"author,omitempty"`

	// RawScore is the source-native relevance score. Scales differ per
	// channel and are only comparable after fusion.
	RawScore float64 `json:"raw_score"`

	// Channel is the retrieval channel that scored this candidate. The score
	// fuser retags candidates appearing in both lexical lists as ChannelBoth.
	Channel RetrievalChannel `json:"channel,omitempty"`

	// Vector is an optional precomputed embedding, used by the diversity
	// selector's cosine mode when present.
	Vector []float32 `json:"-"`

	// DerivedScores accumulates per-stage scores, each clamped to [0,1].
	DerivedScores map[ScoreKind]float64 `json:"derived_scores,omitempty"`

	// Penalties records, per filter category, the multiplicative penalty
	// factor that was applied. Kept for auditability.
	Penalties map[string]float64 `json:"penalties,omitempty"`

	Provenance []Origin `json:"provenance,omitempty"`
}

// Key returns the exact-identity key used to merge duplicate hits before
// fuzzy deduplication.
func (c *Candidate) Key() string {
	if c.SourceKind == SourceDocument {
		return fmt.Sprintf("%s/%s/%d", c.SourceKind, c.SourceID, c.ChunkIndex)
	}
	return fmt.Sprintf("%s/%s", c.SourceKind, c.SourceID)
}

// SetScore records a derived score, clamped to [0,1].
func (c *Candidate) SetScore(kind ScoreKind, value float64) {
	if c.DerivedScores == nil {
		c.DerivedScores = make(map[ScoreKind]float64, 4)
	}
	c.DerivedScores[kind] = Clamp01(value)
}

// Score returns a derived score if present.
func (c *Candidate) Score(kind ScoreKind) (float64, bool) {
	v, ok := c.DerivedScores[kind]
	return v, ok
}

// ScoreOrNeutral returns a derived score, or NeutralScore when the signal was
// never computed.
func (c *Candidate) ScoreOrNeutral(kind ScoreKind) float64 {
	if v, ok := c.DerivedScores[kind]; ok {
		return v
	}
	return NeutralScore
}

// RecordPenalty notes that a penalty factor was applied under a category.
// Repeated penalties in the same category compound.
func (c *Candidate) RecordPenalty(category string, factor float64) {
	if c.Penalties == nil {
		c.Penalties = make(map[string]float64, 2)
	}
	if prev, ok := c.Penalties[category]; ok {
		c.Penalties[category] = Clamp01(1 - (1-prev)*(1-factor))
		return
	}
	c.Penalties[category] = Clamp01(factor)
}

// AddOrigin appends an origin, skipping exact repeats.
func (c *Candidate) AddOrigin(o Origin) {
	for _, existing := range c.Provenance {
		if existing == o {
			return
		}
	}
	c.Provenance = append(c.Provenance, o)
}

// MergeFrom folds other into c after the two matched on Key or on fuzzy
// similarity. Provenance is unioned; the caller is responsible for keeping
// the higher-RawScore member as the receiver.
func (c *Candidate) MergeFrom(other *Candidate) {
	for _, o := range other.Provenance {
		c.AddOrigin(o)
	}
	if c.Title == "" {
		c.Title = other.Title
	}
	if c.DocumentName == "" {
		c.DocumentName = other.DocumentName
	}
	if c.PublishedDate == nil {
		c.PublishedDate = other.PublishedDate
	}
	if c.Vector == nil {
		c.Vector = other.Vector
	}
}

// EffectiveScore returns the fused combined score once the score fuser has
// produced one, and the source-native raw score before that.
func (c *Candidate) EffectiveScore() float64 {
	if v, ok := c.DerivedScores[ScoreCombined]; ok {
		return v
	}
	return c.RawScore
}

// Domain returns the registrable host of a web candidate's URL, lowercased
// and stripped of a leading "www.". Document candidates return "" — the
// diversity cap groups them under their document instead.
func (c *Candidate) Domain() string {
	if c.SourceKind != SourceWeb || c.URL == "" {
		return ""
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
