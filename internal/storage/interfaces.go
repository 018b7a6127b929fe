package storage

import (
	"context"
	"time"

	"ticker-mention-lab/internal/domain"
)

// OccurrenceStore provides access to occurrences storage: the single
// writable source of truth, an append-only deduplicated collection of
// (token, observed_at) facts.
type OccurrenceStore interface {
	// Append inserts occurrences, deduplicating the input and ignoring
	// pairs already stored. Re-appending a stored pair is a no-op, not an
	// error. Safe under concurrent callers. Returns the count of newly
	// inserted rows. Transient write failures are retried per the store's
	// bounded policy; exhaustion surfaces as ErrUnavailable.
	Append(ctx context.Context, occurrences map[string][]time.Time) (int, error)

	// TopTokens returns up to n tokens ranked by total occurrence count
	// descending, ties broken by token ascending for determinism.
	TopTokens(ctx context.Context, n int) ([]domain.TokenCount, error)

	// OccurrencesFor returns all stored timestamp strings for a token.
	// Order is unspecified; callers sort if they need order. Reads are
	// never retried.
	OccurrencesFor(ctx context.Context, token string) ([]string, error)
}
