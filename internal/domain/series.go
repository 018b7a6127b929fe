package domain

import "time"

// SeriesPoint is one bucket of a token's occurrence series.
type SeriesPoint struct {
	BucketStart time.Time `json:"bucket_start"` // day start, or Monday of the week, UTC midnight
	Count       int       `json:"count"`        // occurrences in the bucket, always >= 1
}

// Series is an ordered sequence of buckets, ascending by BucketStart.
// Buckets with zero occurrences are absent; there is no gap filling.
type Series []SeriesPoint
