// Package pipeline composes the retrieval stages into one query path:
// expansion, fan-out retrieval, deduplication, strategy filtering, score
// fusion, diversity selection, and final ordering. The pipeline never fails a
// query outright; degraded collaborators shrink the candidate pool and an
// empty pool yields an empty result, not an error.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rankd/internal/candidate"
	"github.com/fyrsmithlabs/rankd/internal/dedup"
	"github.com/fyrsmithlabs/rankd/internal/diversity"
	"github.com/fyrsmithlabs/rankd/internal/expand"
	"github.com/fyrsmithlabs/rankd/internal/filter"
	"github.com/fyrsmithlabs/rankd/internal/fusion"
	"github.com/fyrsmithlabs/rankd/internal/ordering"
	"github.com/fyrsmithlabs/rankd/internal/retrieval"
)

// Stage names, used in timings and metrics.
const (
	StageExpand    = "expand"
	StageRetrieve  = "retrieve"
	StageDedup     = "dedup"
	StageFilter    = "filter"
	StageFuse      = "fuse"
	StageDiversity = "diversity"
	StageOrder     = "order"
)

// Config holds the per-stage defaults a pipeline is built with. Queries can
// override strategy mode, fusion weights, ordering strategy, and result count
// per call.
type Config struct {
	Expand    expand.Config
	Retrieval retrieval.Config
	Dedup     dedup.Config
	Mode      filter.Mode
	Fusion    fusion.Config
	Variants  []fusion.Variant
	Diversity diversity.Config
	Ordering  ordering.Config
}

// DefaultConfig returns moderate-strategy defaults for every stage.
func DefaultConfig() Config {
	return Config{
		Expand:    expand.DefaultConfig(),
		Retrieval: retrieval.DefaultConfig(),
		Dedup:     dedup.DefaultConfig(),
		Mode:      filter.ModeModerate,
		Fusion:    fusion.DefaultConfig(),
		Diversity: diversity.DefaultConfig(),
		Ordering:  ordering.DefaultConfig(),
	}
}

// Query is one retrieval request.
type Query struct {
	// Text is the user query. Empty text yields an empty result.
	Text string `json:"text"`

	// Context optionally steers query expansion.
	Context string `json:"context,omitempty"`

	// UserID enables deterministic A/B weight bucketing when variants are
	// configured.
	UserID string `json:"user_id,omitempty"`

	// Topic and Country narrow web search; Topic additionally drives the
	// topic-match filter signal.
	Topic   string `json:"topic,omitempty"`
	Country string `json:"country,omitempty"`

	// DateFrom/DateTo narrow web search and drive the time-range filter
	// signal. Zero bounds are open.
	DateFrom time.Time `json:"date_from,omitempty"`
	DateTo   time.Time `json:"date_to,omitempty"`

	// Mode selects a filter strategy preset; empty uses the pipeline default.
	// Strategy, when set, wins over Mode.
	Mode     filter.Mode      `json:"mode,omitempty"`
	Strategy *filter.Strategy `json:"strategy,omitempty"`

	// Weights overrides fusion weights for this call.
	Weights *fusion.Weights `json:"weights,omitempty"`

	// OrderBy overrides the ordering strategy; empty uses the default.
	OrderBy ordering.Strategy `json:"order_by,omitempty"`

	// MaxResults bounds the final list when positive.
	MaxResults int `json:"max_results,omitempty"`
}

// StageTiming is the wall time one stage took for one query.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Result is the ranked output of one query. Candidates carry their per-stage
// scores, penalties, and provenance for citation rendering and ranking
// audits.
type Result struct {
	Candidates []*candidate.Candidate `json:"candidates"`
	Variations []string               `json:"variations,omitempty"`
	Variant    string                 `json:"variant,omitempty"`
	Timings    []StageTiming          `json:"timings,omitempty"`
}

// Pipeline runs queries through the staged retrieval path.
type Pipeline struct {
	config    Config
	expander  *expand.Expander
	retriever *retrieval.Retriever
	deduper   *dedup.Deduplicator
	quality   filter.QualityScorer
	authority filter.AuthorityScorer
	logger    *zap.Logger
	metrics   *metrics
}

// New creates a Pipeline. The retriever is required; the expander may be nil
// (queries then run unexpanded). A nil meter disables metrics, a nil logger
// disables logging.
func New(
	cfg Config,
	expander *expand.Expander,
	retriever *retrieval.Retriever,
	quality filter.QualityScorer,
	authority filter.AuthorityScorer,
	meter metric.Meter,
	logger *zap.Logger,
) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var m *metrics
	if meter != nil {
		var err error
		if m, err = newMetrics(meter); err != nil {
			return nil, err
		}
	}
	return &Pipeline{
		config:    cfg,
		expander:  expander,
		retriever: retriever,
		deduper:   dedup.New(cfg.Dedup, logger.Named("dedup")),
		quality:   quality,
		authority: authority,
		logger:    logger,
		metrics:   m,
	}, nil
}

// Run executes the full pipeline for one query.
func (p *Pipeline) Run(ctx context.Context, q Query) (*Result, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return &Result{}, nil
	}
	p.metrics.recordQuery(ctx)
	start := time.Now()

	result := &Result{}
	timer := stageTimer{ctx: ctx, metrics: p.metrics, result: result}

	// 1. Expansion.
	timer.run(StageExpand, func() {
		if p.expander != nil {
			result.Variations = p.expander.Expand(ctx, q.Text, q.Context)
		} else {
			result.Variations = []string{q.Text}
		}
	})
	result.Variant = fusion.AssignedVariant(q.UserID, p.config.Variants)

	// 2. Retrieval fan-out.
	var retrieved *retrieval.Result
	timer.run(StageRetrieve, func() {
		retrieved = p.retriever.Retrieve(ctx, result.Variations, retrieval.WebFilters{
			Topic:    q.Topic,
			Country:  q.Country,
			DateFrom: q.DateFrom,
			DateTo:   q.DateTo,
		})
	})

	// 3. Per-channel deduplication. Cross-channel duplicates collapse later:
	// lexical channels merge by key during fusion, and a final fuzzy pass
	// covers web copies of indexed content.
	timer.run(StageDedup, func() {
		retrieved.Semantic = p.deduper.Deduplicate(retrieved.Semantic)
		retrieved.Keyword = p.deduper.Deduplicate(retrieved.Keyword)
		retrieved.Web = p.deduper.Deduplicate(retrieved.Web)
	})

	// 4. Strategy filtering across the union. Candidates are shared pointers,
	// so penalties and derived scores stick when the channels are rebuilt for
	// fusion below.
	f := p.filterFor(q)
	timer.run(StageFilter, func() {
		union := make([]*candidate.Candidate, 0, retrieved.Total())
		union = append(union, retrieved.Semantic...)
		union = append(union, retrieved.Keyword...)
		union = append(union, retrieved.Web...)

		union = f.ApplyTimeRange(union, filter.TimeWindow{From: q.DateFrom, To: q.DateTo})
		union = f.ApplyTopic(union, q.Topic)
		union = f.Apply(union)

		survivors := make(map[*candidate.Candidate]struct{}, len(union))
		for _, c := range union {
			survivors[c] = struct{}{}
		}
		retrieved.Semantic = keepSurvivors(retrieved.Semantic, survivors)
		retrieved.Keyword = keepSurvivors(retrieved.Keyword, survivors)
		retrieved.Web = keepSurvivors(retrieved.Web, survivors)
	})

	// 5. Fusion of the lexical channels, then the web channel joins the pool
	// on its own normalized scale and cross-source duplicates collapse.
	var pool []*candidate.Candidate
	timer.run(StageFuse, func() {
		fuser := p.fuserFor(q)
		pool = fuser.Fuse(retrieved.Semantic, retrieved.Keyword)
		pool = p.mergeWeb(pool, retrieved.Web)
	})

	// 6. Diversity selection.
	timer.run(StageDiversity, func() {
		divCfg := p.config.Diversity
		if q.MaxResults > 0 {
			divCfg.MaxResults = q.MaxResults
		}
		pool = diversity.New(divCfg, p.logger.Named("diversity")).Select(pool)
	})

	// 7. Final ordering.
	timer.run(StageOrder, func() {
		ordCfg := p.config.Ordering
		if q.OrderBy != "" {
			ordCfg.Strategy = q.OrderBy
		}
		pool = ordering.New(ordCfg, p.logger.Named("ordering")).Order(pool)
	})

	result.Candidates = pool
	p.metrics.recordResults(ctx, len(pool))
	p.logger.Info("pipeline completed",
		zap.String("query", q.Text),
		zap.Int("variations", len(result.Variations)),
		zap.Int("results", len(pool)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// filterFor resolves the filter for one query: explicit strategy, then mode
// preset, then the pipeline default mode.
func (p *Pipeline) filterFor(q Query) *filter.Filter {
	var strategy filter.Strategy
	switch {
	case q.Strategy != nil:
		strategy = *q.Strategy
	case q.Mode != "":
		strategy = filter.StrategyFor(q.Mode)
	default:
		strategy = filter.StrategyFor(p.config.Mode)
	}
	return filter.New(strategy, p.quality, p.authority, p.logger.Named("filter"))
}

// fuserFor resolves fusion weights for one query and applies the query's
// result-count override.
func (p *Pipeline) fuserFor(q Query) *fusion.Fuser {
	cfg := p.config.Fusion
	cfg.Weights = fusion.SelectWeights(q.Weights, q.UserID, p.config.Variants)
	if q.MaxResults > 0 {
		cfg.MaxResults = q.MaxResults
	}
	return fusion.New(cfg, p.logger.Named("fusion"))
}

// mergeWeb folds web candidates into the fused pool. Web scores are already
// provider-normalized relevance; they are max-normalized across the web list
// so the best web hit competes at 1.0, then the merged pool is deduplicated
// once more to collapse web copies of indexed content.
func (p *Pipeline) mergeWeb(fused, web []*candidate.Candidate) []*candidate.Candidate {
	if len(web) == 0 {
		return fused
	}
	max := 0.0
	for _, c := range web {
		if c.RawScore > max {
			max = c.RawScore
		}
	}
	for _, c := range web {
		if max > 0 {
			c.SetScore(candidate.ScoreCombined, c.RawScore/max)
		} else {
			c.SetScore(candidate.ScoreCombined, 0)
		}
	}
	pool := append(fused, web...)
	return p.deduper.Deduplicate(pool)
}

func keepSurvivors(list []*candidate.Candidate, survivors map[*candidate.Candidate]struct{}) []*candidate.Candidate {
	kept := list[:0]
	for _, c := range list {
		if _, ok := survivors[c]; ok {
			kept = append(kept, c)
		}
	}
	return kept
}

// stageTimer runs a stage, appends its wall time to the result, and records
// the metric.
type stageTimer struct {
	ctx     context.Context
	metrics *metrics
	result  *Result
}

func (t *stageTimer) run(stage string, fn func()) {
	start := time.Now()
	fn()
	elapsed := time.Since(start)
	t.result.Timings = append(t.result.Timings, StageTiming{Stage: stage, Duration: elapsed})
	t.metrics.recordStage(t.ctx, stage, elapsed)
}
