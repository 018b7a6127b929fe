package reporting

import (
	"time"

	"ticker-mention-lab/internal/domain"
)

// Report represents one mention report over the stored occurrences.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Granularity domain.Granularity
	TokenCount  int

	// Top tokens in rank order (count descending, token ascending on ties).
	TopTokens []domain.TokenCount

	// SeriesRows, one per (token, bucket), sorted by rank then bucket.
	SeriesRows []SeriesRow

	// MalformedTimestamps counts stored entries excluded during bucketing.
	MalformedTimestamps int
}

// SeriesRow represents one bucket of one token's series.
type SeriesRow struct {
	Token       string
	BucketStart time.Time
	Count       int
}
