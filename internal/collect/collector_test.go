package collect

import (
	"testing"
	"time"

	"ticker-mention-lab/internal/domain"
)

func ts(s string) time.Time {
	t, err := domain.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCollect_SinceIsExclusive(t *testing.T) {
	since := ts("2024-01-10 12:00:00")

	items := []*domain.Item{
		{Text: "GME up", ObservedAt: ts("2024-01-10 12:00:00"), Kind: domain.ItemKindPost},    // == since, excluded
		{Text: "GME down", ObservedAt: ts("2024-01-10 12:00:01"), Kind: domain.ItemKindPost},  // after, included
		{Text: "AMC flat", ObservedAt: ts("2024-01-09 00:00:00"), Kind: domain.ItemKindPost},  // before, excluded
	}

	result := Collect(items, since)

	if result.ItemsScanned != 1 {
		t.Errorf("ItemsScanned = %d, want 1", result.ItemsScanned)
	}
	if _, ok := result.Occurrences["AMC"]; ok {
		t.Error("AMC should be filtered out by since")
	}
	if len(result.Occurrences["GME"]) != 1 {
		t.Errorf("GME timestamps = %d, want 1", len(result.Occurrences["GME"]))
	}
}

func TestCollect_DedupsTokenTimestampPairs(t *testing.T) {
	when := ts("2024-01-10 12:00:00")

	// A post and its comment resolved to the same timestamp.
	items := []*domain.Item{
		{Text: "TSLA earnings", ObservedAt: when, Kind: domain.ItemKindPost},
		{Text: "TSLA indeed", ObservedAt: when, Kind: domain.ItemKindComment},
		{Text: "TSLA later", ObservedAt: when.Add(time.Minute), Kind: domain.ItemKindComment},
	}

	result := Collect(items, when.Add(-time.Hour))

	if len(result.Occurrences["TSLA"]) != 2 {
		t.Errorf("TSLA timestamps = %d, want 2 (same-timestamp pair collapses)", len(result.Occurrences["TSLA"]))
	}
}

func TestCollect_SkipsMalformedItems(t *testing.T) {
	since := ts("2024-01-01 00:00:00")

	items := []*domain.Item{
		{Text: "GME fine", ObservedAt: ts("2024-01-02 00:00:00")},
		{Text: "broken \xff text", ObservedAt: ts("2024-01-02 00:00:01")},
		{Text: "AMC fine", ObservedAt: ts("2024-01-02 00:00:02")},
	}

	result := Collect(items, since)

	if result.ItemsSkipped != 1 {
		t.Errorf("ItemsSkipped = %d, want 1", result.ItemsSkipped)
	}
	if result.ItemsScanned != 2 {
		t.Errorf("ItemsScanned = %d, want 2", result.ItemsScanned)
	}
	if result.TokenCount() != 2 {
		t.Errorf("TokenCount = %d, want 2", result.TokenCount())
	}
}

func TestCollect_ForAppendShape(t *testing.T) {
	items := []*domain.Item{
		{Text: "GME GME AMC", ObservedAt: ts("2024-01-02 10:00:00")},
		{Text: "GME again", ObservedAt: ts("2024-01-02 11:00:00")},
	}

	result := Collect(items, ts("2024-01-01 00:00:00"))
	flat := result.ForAppend()

	if len(flat["GME"]) != 2 {
		t.Errorf("GME flattened = %d, want 2", len(flat["GME"]))
	}
	if len(flat["AMC"]) != 1 {
		t.Errorf("AMC flattened = %d, want 1", len(flat["AMC"]))
	}
}
