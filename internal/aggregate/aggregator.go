// Package aggregate recomputes bucketed occurrence series for the most
// mentioned tokens. It holds no state of its own; every call re-reads the
// store.
package aggregate

import (
	"context"
	"fmt"

	"ticker-mention-lab/internal/bucketize"
	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/storage"
)

// Aggregator builds top-N token series from the occurrence store.
type Aggregator struct {
	store storage.OccurrenceStore
}

// New creates a new Aggregator.
func New(store storage.OccurrenceStore) *Aggregator {
	return &Aggregator{store: store}
}

// TopSeries is the result of one aggregation pass. Reads may observe a
// partially written concurrent scan; no snapshot isolation is claimed
// across tokens.
type TopSeries struct {
	// Tokens in rank order (count descending, token ascending on ties).
	Tokens []string

	// Counts carries the ranked totals behind Tokens, same order.
	Counts []domain.TokenCount

	// Series per token. A token whose stored timestamps were all
	// malformed keeps an entry with an empty series, so callers can tell
	// "no data" from "not selected".
	Series map[string]domain.Series

	// MalformedTimestamps counts stored entries excluded during
	// bucketing, summed over all selected tokens.
	MalformedTimestamps int
}

// TopSeries ranks the top n tokens and bucketizes each token's stored
// occurrences at the given granularity.
func (a *Aggregator) TopSeries(ctx context.Context, n int, g domain.Granularity) (*TopSeries, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: granularity %q", storage.ErrInvalidInput, g)
	}

	top, err := a.store.TopTokens(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("rank top tokens: %w", err)
	}

	result := &TopSeries{
		Tokens: make([]string, 0, len(top)),
		Counts: top,
		Series: make(map[string]domain.Series, len(top)),
	}

	for _, tc := range top {
		raw, err := a.store.OccurrencesFor(ctx, tc.Token)
		if err != nil {
			return nil, fmt.Errorf("load occurrences for %s: %w", tc.Token, err)
		}

		series, skipped := bucketize.Bucketize(raw, g)
		result.Tokens = append(result.Tokens, tc.Token)
		result.Series[tc.Token] = series
		result.MalformedTimestamps += skipped
	}

	return result, nil
}
