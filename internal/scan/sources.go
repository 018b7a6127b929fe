package scan

import (
	"context"

	"ticker-mention-lab/internal/domain"
)

// ItemSource provides scannable text items from an external forum.
// Implementations own authentication, pagination and rate limiting; the
// runner only consumes (text, timestamp, kind) items.
type ItemSource interface {
	// Fetch returns the newest items for a source identifier. Items may
	// be unordered and may predate the scan window; the collector
	// applies the window filter.
	Fetch(ctx context.Context, source string) ([]*domain.Item, error)
}
