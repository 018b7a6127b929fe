// Package bucketize groups stored occurrence timestamps into
// calendar-aligned buckets.
package bucketize

import (
	"sort"
	"time"

	"ticker-mention-lab/internal/domain"
)

// Bucketize groups raw stored timestamps into day or Monday-aligned week
// buckets and returns the series sorted ascending by bucket start, plus the
// number of entries skipped because they failed to parse. Malformed entries
// are never fatal to the series. Buckets with zero occurrences are absent.
func Bucketize(raw []string, g domain.Granularity) (domain.Series, int) {
	counts := make(map[time.Time]int)
	skipped := 0

	for _, s := range raw {
		t, err := domain.ParseTimestamp(s)
		if err != nil {
			skipped++
			continue
		}
		counts[bucketStart(t, g)]++
	}

	if len(counts) == 0 {
		return nil, skipped
	}

	series := make(domain.Series, 0, len(counts))
	for start, count := range counts {
		series = append(series, domain.SeriesPoint{BucketStart: start, Count: count})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].BucketStart.Before(series[j].BucketStart)
	})

	return series, skipped
}

// bucketStart resolves the bucket key for a timestamp: the calendar date
// for day grouping, or the Monday of the ISO week for week grouping.
func bucketStart(t time.Time, g domain.Granularity) time.Time {
	t = t.UTC()
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	if g == domain.GranularityWeek {
		// time.Weekday is Sunday-indexed; shift so Monday is offset zero.
		offset := (int(date.Weekday()) + 6) % 7
		date = date.AddDate(0, 0, -offset)
	}

	return date
}
