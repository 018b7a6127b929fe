package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/storage/postgres"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := domain.ParseTimestamp(s)
	require.NoError(t, err)
	return ts
}

func TestOccurrenceStore_AppendIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewOccurrenceStore(pool)
	ctx := context.Background()

	occ := map[string][]time.Time{
		"GME": {mustParse(t, "2024-01-01 10:00:00"), mustParse(t, "2024-01-01 11:00:00")},
		"AMC": {mustParse(t, "2024-01-01 10:00:00")},
	}

	inserted, err := store.Append(ctx, occ)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// Second append of the same pairs inserts nothing and raises no error.
	inserted, err = store.Append(ctx, occ)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	stamps, err := store.OccurrencesFor(ctx, "GME")
	require.NoError(t, err)
	assert.Len(t, stamps, 2)
}

func TestOccurrenceStore_AppendDedupesInput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewOccurrenceStore(pool)
	ctx := context.Background()

	when := mustParse(t, "2024-01-01 10:00:00")
	inserted, err := store.Append(ctx, map[string][]time.Time{"GME": {when, when}})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestOccurrenceStore_TopTokensDeterministicTieBreak(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewOccurrenceStore(pool)
	ctx := context.Background()

	base := mustParse(t, "2024-01-01 00:00:00")
	occ := map[string][]time.Time{}
	for i := 0; i < 5; i++ {
		occ["GME"] = append(occ["GME"], base.Add(time.Duration(i)*time.Hour))
		occ["AMC"] = append(occ["AMC"], base.Add(time.Duration(i)*time.Hour))
	}
	occ["BBY"] = append(occ["BBY"], base)
	_, err := store.Append(ctx, occ)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		top, err := store.TopTokens(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "AMC", top[0].Token)
		assert.Equal(t, "GME", top[1].Token)
		assert.Equal(t, 5, top[0].Count)
		assert.Equal(t, 5, top[1].Count)
	}
}

func TestOccurrenceStore_ConcurrentAppendSamePair(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewOccurrenceStore(pool)
	ctx := context.Background()
	when := mustParse(t, "2024-01-01 10:00:00")

	const writers = 8
	insertedCh := make(chan int, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := store.Append(ctx, map[string][]time.Time{"GME": {when}})
			assert.NoError(t, err)
			insertedCh <- n
		}()
	}
	wg.Wait()
	close(insertedCh)

	total := 0
	for n := range insertedCh {
		total += n
	}
	assert.Equal(t, 1, total, "exactly one writer should insert the row")

	stamps, err := store.OccurrencesFor(ctx, "GME")
	require.NoError(t, err)
	assert.Len(t, stamps, 1)
}

func TestOccurrenceStore_OccurrencesForUnknownToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewOccurrenceStore(pool)

	stamps, err := store.OccurrencesFor(context.Background(), "ZZZZ")
	require.NoError(t, err)
	assert.Empty(t, stamps)
}
