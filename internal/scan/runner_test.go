package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/forum/stub"
	"ticker-mention-lab/internal/storage"
	"ticker-mention-lab/internal/storage/memory"
)

func item(text string, observedAt time.Time) *domain.Item {
	return &domain.Item{
		Text:       text,
		ObservedAt: observedAt,
		Kind:       domain.ItemKindPost,
		Source:     "wallstreetbets",
	}
}

func TestRunScan(t *testing.T) {
	now := time.Now().UTC()
	source := stub.NewItemSource(map[string][]*domain.Item{
		"wallstreetbets": {
			item("GME to the moon", now.Add(-time.Hour)),
			item("GME again, also AMC", now.Add(-time.Hour)),
			item("ancient TSLA post", now.Add(-48*time.Hour)),
		},
		"stocks": {
			item("thoughts on TSLA?", now.Add(-30*time.Minute)),
		},
	})
	store := memory.NewOccurrenceStore()
	runner := NewRunner(RunnerOptions{Source: source, Store: store})

	result, err := runner.RunScan(context.Background(), []string{"wallstreetbets", "stocks"}, 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 4, result.ItemsFetched)
	assert.Equal(t, 3, result.ItemsScanned)
	assert.Equal(t, 0, result.ItemsSkipped)
	assert.Equal(t, []string{"AMC", "GME", "TSLA"}, result.TokensDetected)
	assert.Equal(t, 4, result.Inserted)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, StateIdle, runner.Status().State)
	assert.Empty(t, runner.Status().LastError)
}

func TestRunScanIdempotent(t *testing.T) {
	now := time.Now().UTC()
	source := stub.NewItemSource(map[string][]*domain.Item{
		"stocks": {item("NVDA earnings", now.Add(-time.Hour))},
	})
	store := memory.NewOccurrenceStore()
	runner := NewRunner(RunnerOptions{Source: source, Store: store})

	first, err := runner.RunScan(context.Background(), []string{"stocks"}, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, first.Inserted)

	second, err := runner.RunScan(context.Background(), []string{"stocks"}, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Duplicates)
}

func TestRunScanNoItems(t *testing.T) {
	source := stub.NewItemSource(map[string][]*domain.Item{})
	store := memory.NewOccurrenceStore()
	runner := NewRunner(RunnerOptions{Source: source, Store: store})

	result, err := runner.RunScan(context.Background(), []string{"stocks"}, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, result.TokensDetected)
	assert.Equal(t, 0, result.Inserted)
}

func TestRunScanFetchFailure(t *testing.T) {
	fetchErr := errors.New("listing unavailable")
	runner := NewRunner(RunnerOptions{
		Source: stub.NewFailingItemSource(fetchErr),
		Store:  memory.NewOccurrenceStore(),
	})

	_, err := runner.RunScan(context.Background(), []string{"stocks"}, time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)

	status := runner.Status()
	assert.Equal(t, StateFailed, status.State)
	assert.Contains(t, status.LastError, "listing unavailable")
}

type failingStore struct {
	*memory.OccurrenceStore
}

func (s *failingStore) Append(ctx context.Context, occurrences map[string][]time.Time) (int, error) {
	return 0, storage.ErrUnavailable
}

func TestRunScanAppendFailure(t *testing.T) {
	now := time.Now().UTC()
	source := stub.NewItemSource(map[string][]*domain.Item{
		"stocks": {item("GME yolo", now.Add(-time.Minute))},
	})
	runner := NewRunner(RunnerOptions{
		Source: source,
		Store:  &failingStore{memory.NewOccurrenceStore()},
	})

	_, err := runner.RunScan(context.Background(), []string{"stocks"}, time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Equal(t, StateFailed, runner.Status().State)
}

func TestRunScanRecoversAfterFailure(t *testing.T) {
	fetchErr := errors.New("listing unavailable")
	store := memory.NewOccurrenceStore()
	runner := NewRunner(RunnerOptions{Source: stub.NewFailingItemSource(fetchErr), Store: store})

	_, err := runner.RunScan(context.Background(), []string{"stocks"}, time.Hour)
	require.Error(t, err)
	require.Equal(t, StateFailed, runner.Status().State)

	// A failed run is not sticky; the next run clears the status.
	runner.source = stub.NewItemSource(map[string][]*domain.Item{
		"stocks": {item("GME rally", time.Now().UTC().Add(-time.Minute))},
	})
	result, err := runner.RunScan(context.Background(), []string{"stocks"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, StateIdle, runner.Status().State)
	assert.Empty(t, runner.Status().LastError)
}

func TestRunScanSkipsMalformedItems(t *testing.T) {
	now := time.Now().UTC()
	source := stub.NewItemSource(map[string][]*domain.Item{
		"stocks": {
			item("AAPL chat", now.Add(-time.Minute)),
			item("bad \xff\xfe bytes", now.Add(-time.Minute)),
		},
	})
	store := memory.NewOccurrenceStore()
	runner := NewRunner(RunnerOptions{Source: source, Store: store})

	result, err := runner.RunScan(context.Background(), []string{"stocks"}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsSkipped)
	assert.Equal(t, []string{"AAPL"}, result.TokensDetected)
}

func TestRunScanRanksTopTokens(t *testing.T) {
	now := time.Now().UTC()
	items := []*domain.Item{
		item("GME", now.Add(-3*time.Minute)),
		item("GME", now.Add(-2*time.Minute)),
		item("AMC", now.Add(-4*time.Minute)),
		item("AMC", now.Add(-5*time.Minute)),
		item("NOK", now.Add(-6*time.Minute)),
	}
	source := stub.NewItemSource(map[string][]*domain.Item{"stocks": items})
	store := memory.NewOccurrenceStore()
	runner := NewRunner(RunnerOptions{Source: source, Store: store, TopN: 2})

	result, err := runner.RunScan(context.Background(), []string{"stocks"}, time.Hour)
	require.NoError(t, err)

	// Ties break on token ascending, so AMC sorts before GME at 2-2.
	require.Len(t, result.TopTokens, 2)
	assert.Equal(t, domain.TokenCount{Token: "AMC", Count: 2}, result.TopTokens[0])
	assert.Equal(t, domain.TokenCount{Token: "GME", Count: 2}, result.TopTokens[1])
}
