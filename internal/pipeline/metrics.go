package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the pipeline's instruments. All instruments are optional:
// a nil metrics records nothing.
type metrics struct {
	queries       metric.Int64Counter
	stageDuration metric.Float64Histogram
	resultCount   metric.Int64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	queries, err := meter.Int64Counter("rankd_queries_total",
		metric.WithDescription("Queries processed by the retrieval pipeline"))
	if err != nil {
		return nil, fmt.Errorf("creating query counter: %w", err)
	}
	stageDuration, err := meter.Float64Histogram("rankd_stage_duration_seconds",
		metric.WithDescription("Per-stage wall time"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating stage histogram: %w", err)
	}
	resultCount, err := meter.Int64Histogram("rankd_result_count",
		metric.WithDescription("Final ranked candidates per query"))
	if err != nil {
		return nil, fmt.Errorf("creating result histogram: %w", err)
	}
	return &metrics{queries: queries, stageDuration: stageDuration, resultCount: resultCount}, nil
}

func (m *metrics) recordQuery(ctx context.Context) {
	if m == nil {
		return
	}
	m.queries.Add(ctx, 1)
}

func (m *metrics) recordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *metrics) recordResults(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.resultCount.Record(ctx, int64(n))
}
