// Package collect walks fetched forum items and builds the in-memory
// occurrence multimap that feeds the occurrence store.
package collect

import (
	"time"

	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/extract"
)

// Result holds the outcome of one collection pass.
type Result struct {
	// Occurrences maps token -> set of observation timestamps.
	// The set dedups a token seen twice at the same resolved timestamp,
	// e.g. a post and its first comment sharing a creation time.
	Occurrences map[string]map[time.Time]struct{}

	ItemsScanned int // items inside the window that were extracted
	ItemsSkipped int // items dropped due to extraction failure
}

// TokenCount returns the number of distinct tokens collected.
func (r *Result) TokenCount() int {
	return len(r.Occurrences)
}

// ForAppend flattens the occurrence sets into the shape the store accepts.
func (r *Result) ForAppend() map[string][]time.Time {
	out := make(map[string][]time.Time, len(r.Occurrences))
	for token, stamps := range r.Occurrences {
		list := make([]time.Time, 0, len(stamps))
		for ts := range stamps {
			list = append(list, ts)
		}
		out[token] = list
	}
	return out
}

// Collect extracts tokens from items observed strictly after since.
// An item whose text fails extraction is skipped and counted, never fatal
// to the batch. Timestamps are normalized to UTC before dedup.
func Collect(items []*domain.Item, since time.Time) *Result {
	result := &Result{
		Occurrences: make(map[string]map[time.Time]struct{}),
	}

	for _, item := range items {
		if item == nil || !item.ObservedAt.After(since) {
			continue
		}

		tokens, err := extract.Tokens(item.Text)
		if err != nil {
			result.ItemsSkipped++
			continue
		}
		result.ItemsScanned++

		observedAt := item.ObservedAt.UTC().Truncate(time.Second)
		for _, token := range tokens {
			stamps, ok := result.Occurrences[token]
			if !ok {
				stamps = make(map[time.Time]struct{})
				result.Occurrences[token] = stamps
			}
			stamps[observedAt] = struct{}{}
		}
	}

	return result
}
