package reporting

import (
	"context"
	"time"

	"ticker-mention-lab/internal/aggregate"
	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/observability"
)

// Generator produces reports from stored occurrence data.
type Generator struct {
	aggregator *aggregate.Aggregator
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(aggregator *aggregate.Aggregator) *Generator {
	return &Generator{
		aggregator: aggregator,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report of the top n tokens bucketed at the given
// granularity.
func (g *Generator) Generate(ctx context.Context, n int, granularity domain.Granularity) (*Report, error) {
	top, err := g.aggregator.TopSeries(ctx, n, granularity)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:         g.now(),
		Granularity:         granularity,
		TokenCount:          len(top.Tokens),
		TopTokens:           top.Counts,
		MalformedTimestamps: top.MalformedTimestamps,
	}

	// Series come back bucket-sorted per token; rank order joins them.
	for _, token := range top.Tokens {
		for _, point := range top.Series[token] {
			report.SeriesRows = append(report.SeriesRows, SeriesRow{
				Token:       token,
				BucketStart: point.BucketStart,
				Count:       point.Count,
			})
		}
	}

	observability.RecordReportGenerated()
	return report, nil
}
