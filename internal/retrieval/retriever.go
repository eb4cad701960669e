// Package retrieval fans one query out to the vector index, the keyword
// index, and the web-search provider, and merges their raw candidates. Each
// sub-lookup is independently fault-tolerant: it carries its own timeout and
// degrades to an empty list on failure, never aborting the other two.
package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
)

// Default retriever parameters.
const (
	DefaultVectorTopK     = 5
	DefaultKeywordTopK    = 5
	DefaultWebMaxResults  = 5
	DefaultPrimaryFloor   = 0.7
	DefaultSecondaryFloor = 0.5
	DefaultVectorTimeout  = 2 * time.Second
	DefaultKeywordTimeout = 1 * time.Second
	DefaultWebTimeout     = 5 * time.Second
)

// Config controls the retriever.
type Config struct {
	VectorTopK    int
	KeywordTopK   int
	WebMaxResults int

	// PrimaryFloor is the minimum vector score; when no hit passes it, the
	// floor relaxes once to SecondaryFloor before giving up.
	PrimaryFloor   float64
	SecondaryFloor float64

	VectorTimeout  time.Duration
	KeywordTimeout time.Duration
	WebTimeout     time.Duration
}

// DefaultConfig returns the default retriever configuration.
func DefaultConfig() Config {
	return Config{
		VectorTopK:     DefaultVectorTopK,
		KeywordTopK:    DefaultKeywordTopK,
		WebMaxResults:  DefaultWebMaxResults,
		PrimaryFloor:   DefaultPrimaryFloor,
		SecondaryFloor: DefaultSecondaryFloor,
		VectorTimeout:  DefaultVectorTimeout,
		KeywordTimeout: DefaultKeywordTimeout,
		WebTimeout:     DefaultWebTimeout,
	}
}

func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.VectorTopK <= 0 {
		c.VectorTopK = d.VectorTopK
	}
	if c.KeywordTopK <= 0 {
		c.KeywordTopK = d.KeywordTopK
	}
	if c.WebMaxResults <= 0 {
		c.WebMaxResults = d.WebMaxResults
	}
	if c.PrimaryFloor <= 0 || c.PrimaryFloor > 1 {
		c.PrimaryFloor = d.PrimaryFloor
	}
	if c.SecondaryFloor <= 0 || c.SecondaryFloor > c.PrimaryFloor {
		c.SecondaryFloor = min(d.SecondaryFloor, c.PrimaryFloor)
	}
	if c.VectorTimeout <= 0 {
		c.VectorTimeout = d.VectorTimeout
	}
	if c.KeywordTimeout <= 0 {
		c.KeywordTimeout = d.KeywordTimeout
	}
	if c.WebTimeout <= 0 {
		c.WebTimeout = d.WebTimeout
	}
	return c
}

// Result groups raw candidates per retrieval channel, preserving per-source
// score scales for the downstream fuser.
type Result struct {
	Semantic []*candidate.Candidate
	Keyword  []*candidate.Candidate
	Web      []*candidate.Candidate
}

// Total returns the candidate count across channels.
func (r *Result) Total() int {
	return len(r.Semantic) + len(r.Keyword) + len(r.Web)
}

// Retriever issues the parallel sub-lookups.
type Retriever struct {
	embedder EmbeddingProvider
	vector   VectorIndex
	keyword  KeywordIndex
	web      WebSearcher
	docs     DocumentStore
	config   Config
	logger   *zap.Logger
}

// New creates a Retriever. Any collaborator may be nil; its channel then
// yields no candidates. A nil logger disables logging.
func New(
	embedder EmbeddingProvider,
	vector VectorIndex,
	keyword KeywordIndex,
	web WebSearcher,
	docs DocumentStore,
	cfg Config,
	logger *zap.Logger,
) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		vector:   vector,
		keyword:  keyword,
		web:      web,
		docs:     docs,
		config:   cfg.normalize(),
		logger:   logger,
	}
}

// Retrieve runs all three sub-lookups concurrently for every query variation
// and merges exact-key duplicates within each channel, keeping the highest
// raw score and unioning provenance. It never returns an error: a failed
// sub-lookup is logged and contributes nothing.
func (r *Retriever) Retrieve(ctx context.Context, variations []string, filters WebFilters) *Result {
	if len(variations) == 0 {
		return &Result{}
	}

	// Each goroutine writes its own slot; merging happens after the join in
	// fixed variation order, so output order is deterministic regardless of
	// goroutine scheduling.
	type lookup struct {
		semantic, keyword, web []*candidate.Candidate
	}
	slots := make([]lookup, len(variations))

	g, gctx := errgroup.WithContext(ctx)
	for i, variation := range variations {
		g.Go(func() error {
			slots[i].semantic = r.searchVector(gctx, variation)
			return nil
		})
		g.Go(func() error {
			slots[i].keyword = r.searchKeyword(gctx, variation)
			return nil
		})
		g.Go(func() error {
			slots[i].web = r.searchWeb(gctx, variation, filters)
			return nil
		})
	}
	_ = g.Wait() // sub-lookups degrade, never fail the group

	result := &Result{}
	for _, s := range slots {
		result.Semantic = mergeChannel(result.Semantic, s.semantic)
		result.Keyword = mergeChannel(result.Keyword, s.keyword)
		result.Web = mergeChannel(result.Web, s.web)
	}

	r.attachDocumentNames(ctx, result)

	r.logger.Debug("retrieved candidates",
		zap.Int("variations", len(variations)),
		zap.Int("semantic", len(result.Semantic)),
		zap.Int("keyword", len(result.Keyword)),
		zap.Int("web", len(result.Web)),
	)
	return result
}

// searchVector embeds the query and searches the vector index, applying the
// relevance floor with one-step relaxation.
func (r *Retriever) searchVector(ctx context.Context, query string) []*candidate.Candidate {
	if r.embedder == nil || r.vector == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.config.VectorTimeout)
	defer cancel()

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	hits, err := r.vector.Search(ctx, vector, r.config.VectorTopK)
	if err != nil {
		r.logger.Warn("vector search failed", zap.String("query", query), zap.Error(err))
		return nil
	}

	passed := filterByFloor(hits, r.config.PrimaryFloor)
	if len(passed) == 0 {
		passed = filterByFloor(hits, r.config.SecondaryFloor)
		if len(passed) > 0 {
			r.logger.Debug("vector floor relaxed",
				zap.Float64("primary", r.config.PrimaryFloor),
				zap.Float64("secondary", r.config.SecondaryFloor),
			)
		}
	}

	out := make([]*candidate.Candidate, 0, len(passed))
	for _, h := range passed {
		c := &candidate.Candidate{
			SourceID:   h.SourceID,
			SourceKind: candidate.SourceDocument,
			ChunkIndex: h.ChunkIndex,
			Content:    h.Content,
			RawScore:   h.Score,
			Vector:     h.Vector,
			Channel:    candidate.ChannelSemantic,
		}
		c.AddOrigin(candidate.Origin{Query: query, Channel: candidate.ChannelSemantic})
		out = append(out, c)
	}
	return out
}

func (r *Retriever) searchKeyword(ctx context.Context, query string) []*candidate.Candidate {
	if r.keyword == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.config.KeywordTimeout)
	defer cancel()

	hits, err := r.keyword.Search(ctx, query, r.config.KeywordTopK)
	if err != nil {
		r.logger.Warn("keyword search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	out := make([]*candidate.Candidate, 0, len(hits))
	for _, h := range hits {
		c := &candidate.Candidate{
			SourceID:   h.SourceID,
			SourceKind: candidate.SourceDocument,
			ChunkIndex: h.ChunkIndex,
			Content:    h.Content,
			RawScore:   h.Score,
			Channel:    candidate.ChannelKeyword,
		}
		c.AddOrigin(candidate.Origin{Query: query, Channel: candidate.ChannelKeyword})
		out = append(out, c)
	}
	return out
}

func (r *Retriever) searchWeb(ctx context.Context, query string, filters WebFilters) []*candidate.Candidate {
	if r.web == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.config.WebTimeout)
	defer cancel()

	if filters.MaxResults <= 0 {
		filters.MaxResults = r.config.WebMaxResults
	}
	hits, err := r.web.Search(ctx, query, filters)
	if err != nil {
		r.logger.Warn("web search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	out := make([]*candidate.Candidate, 0, len(hits))
	for _, h := range hits {
		c := &candidate.Candidate{
			SourceID:      h.URL,
			SourceKind:    candidate.SourceWeb,
			Title:         h.Title,
			URL:           h.URL,
			Content:       h.Content,
			PublishedDate: h.PublishedDate,
			Author:        h.Author,
			RawScore:      h.Score,
			Channel:       candidate.ChannelWeb,
		}
		c.AddOrigin(candidate.Origin{Query: query, Channel: candidate.ChannelWeb})
		out = append(out, c)
	}
	return out
}

// filterByFloor keeps hits scoring at or above floor.
func filterByFloor(hits []VectorHit, floor float64) []VectorHit {
	passed := make([]VectorHit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= floor {
			passed = append(passed, h)
		}
	}
	return passed
}

// attachDocumentNames resolves display names for document candidates.
// Metadata-store failures are logged and skipped.
func (r *Retriever) attachDocumentNames(ctx context.Context, result *Result) {
	if r.docs == nil {
		return
	}
	names := make(map[string]string)
	for _, list := range [][]*candidate.Candidate{result.Semantic, result.Keyword} {
		for _, c := range list {
			name, ok := names[c.SourceID]
			if !ok {
				meta, err := r.docs.GetDocument(ctx, c.SourceID)
				if err != nil {
					r.logger.Debug("document metadata lookup failed",
						zap.String("source_id", c.SourceID), zap.Error(err))
					names[c.SourceID] = ""
					continue
				}
				name = meta.Filename
				names[c.SourceID] = name
			}
			c.DocumentName = name
		}
	}
}

// mergeChannel folds new hits into a channel's accumulated list, merging
// exact-key duplicates produced by different query variations.
func mergeChannel(accumulated, hits []*candidate.Candidate) []*candidate.Candidate {
	if len(hits) == 0 {
		return accumulated
	}
	byKey := make(map[string]int, len(accumulated))
	for i, c := range accumulated {
		byKey[c.Key()] = i
	}
	for _, h := range hits {
		if i, ok := byKey[h.Key()]; ok {
			prior := accumulated[i]
			if h.RawScore > prior.RawScore {
				h.MergeFrom(prior)
				accumulated[i] = h
			} else {
				prior.MergeFrom(h)
			}
			continue
		}
		byKey[h.Key()] = len(accumulated)
		accumulated = append(accumulated, h)
	}
	return accumulated
}
