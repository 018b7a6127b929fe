package bucketize

import (
	"fmt"
	"testing"
	"time"

	"ticker-mention-lab/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBucketize_Day(t *testing.T) {
	raw := []string{
		"2024-01-01 10:00:00",
		"2024-01-01 23:00:00",
		"2024-01-02 01:00:00",
	}

	series, skipped := Bucketize(raw, domain.GranularityDay)
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	if len(series) != 2 {
		t.Fatalf("series length = %d, want 2", len(series))
	}

	if !series[0].BucketStart.Equal(date(2024, time.January, 1)) || series[0].Count != 2 {
		t.Errorf("bucket 0 = (%v, %d), want (2024-01-01, 2)", series[0].BucketStart, series[0].Count)
	}
	if !series[1].BucketStart.Equal(date(2024, time.January, 2)) || series[1].Count != 1 {
		t.Errorf("bucket 1 = (%v, %d), want (2024-01-02, 1)", series[1].BucketStart, series[1].Count)
	}
}

func TestBucketize_WeekCollapsesToMonday(t *testing.T) {
	// 2024-01-01 is a Monday; all three fall in the same ISO week.
	raw := []string{
		"2024-01-01 10:00:00",
		"2024-01-01 23:00:00",
		"2024-01-02 01:00:00",
	}

	series, skipped := Bucketize(raw, domain.GranularityWeek)
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	if len(series) != 1 {
		t.Fatalf("series length = %d, want 1", len(series))
	}
	if !series[0].BucketStart.Equal(date(2024, time.January, 1)) || series[0].Count != 3 {
		t.Errorf("bucket = (%v, %d), want (2024-01-01, 3)", series[0].BucketStart, series[0].Count)
	}
}

func TestBucketize_WeekAlignsSundayBack(t *testing.T) {
	// 2024-01-07 is a Sunday; its week starts Monday 2024-01-01.
	series, _ := Bucketize([]string{"2024-01-07 12:00:00"}, domain.GranularityWeek)
	if len(series) != 1 {
		t.Fatalf("series length = %d, want 1", len(series))
	}
	if !series[0].BucketStart.Equal(date(2024, time.January, 1)) {
		t.Errorf("bucket start = %v, want 2024-01-01", series[0].BucketStart)
	}
}

func TestBucketize_MalformedEntriesCountedNotFatal(t *testing.T) {
	raw := []string{"not-a-timestamp"}
	for i := 0; i < 9; i++ {
		raw = append(raw, fmt.Sprintf("2024-02-%02d 08:00:00", i+1))
	}

	series, skipped := Bucketize(raw, domain.GranularityDay)
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}

	total := 0
	for _, p := range series {
		total += p.Count
	}
	if total != 9 {
		t.Errorf("total valid occurrences = %d, want 9", total)
	}
}

func TestBucketize_Empty(t *testing.T) {
	series, skipped := Bucketize(nil, domain.GranularityDay)
	if series != nil || skipped != 0 {
		t.Errorf("Bucketize(nil) = (%v, %d), want (nil, 0)", series, skipped)
	}
}
