package postgres

import (
	"context"
	"fmt"
	"time"

	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/storage"
)

// OccurrenceStore implements storage.OccurrenceStore using PostgreSQL.
type OccurrenceStore struct {
	pool *Pool

	// Write retry policy. Reads are never retried.
	writeAttempts   int
	writeRetryDelay time.Duration
}

// NewOccurrenceStore creates a new OccurrenceStore with the reference
// retry policy (5 attempts at 0.5s intervals).
func NewOccurrenceStore(pool *Pool) *OccurrenceStore {
	return &OccurrenceStore{
		pool:            pool,
		writeAttempts:   storage.DefaultWriteAttempts,
		writeRetryDelay: storage.DefaultWriteRetryDelay,
	}
}

// WithRetryPolicy overrides the write retry budget. Intended for tests.
func (s *OccurrenceStore) WithRetryPolicy(attempts int, delay time.Duration) *OccurrenceStore {
	s.writeAttempts = attempts
	s.writeRetryDelay = delay
	return s
}

// Compile-time interface check.
var _ storage.OccurrenceStore = (*OccurrenceStore)(nil)

// Append inserts occurrences inside one transaction, deduplicating the
// input before issuing writes. Pairs already stored are skipped by the
// unique constraint (ON CONFLICT DO NOTHING), so re-appending is a no-op.
// The whole transaction is retried on transient errors; exhaustion
// surfaces as storage.ErrUnavailable.
func (s *OccurrenceStore) Append(ctx context.Context, occurrences map[string][]time.Time) (int, error) {
	rows := dedupe(occurrences)
	if len(rows) == 0 {
		return 0, nil
	}

	var inserted int
	err := storage.WithRetry(ctx, s.writeAttempts, s.writeRetryDelay, isTransientError, func() error {
		n, err := s.appendOnce(ctx, rows)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append occurrences: %w", err)
	}

	return inserted, nil
}

func (s *OccurrenceStore) appendOnce(ctx context.Context, rows []domain.Occurrence) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO occurrences (token, observed_at)
		VALUES ($1, $2)
		ON CONFLICT (token, observed_at) DO NOTHING
	`

	inserted := 0
	for _, occ := range rows {
		tag, err := tx.Exec(ctx, query, occ.Token, occ.ObservedAt)
		if err != nil {
			return 0, fmt.Errorf("insert occurrence: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return inserted, nil
}

// TopTokens returns up to n tokens by total occurrence count descending,
// ties broken lexically ascending.
func (s *OccurrenceStore) TopTokens(ctx context.Context, n int) ([]domain.TokenCount, error) {
	if n <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT token, COUNT(*) AS occurrence_count
		FROM occurrences
		GROUP BY token
		ORDER BY occurrence_count DESC, token ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("query top tokens: %w", err)
	}
	defer rows.Close()

	var result []domain.TokenCount
	for rows.Next() {
		var tc domain.TokenCount
		var count int64
		if err := rows.Scan(&tc.Token, &count); err != nil {
			return nil, fmt.Errorf("scan top token row: %w", err)
		}
		tc.Count = int(count)
		result = append(result, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top token rows: %w", err)
	}

	return result, nil
}

// OccurrencesFor returns all stored timestamp strings for a token.
// A token with no rows yields an empty slice, not an error.
func (s *OccurrenceStore) OccurrencesFor(ctx context.Context, token string) ([]string, error) {
	if token == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `SELECT observed_at FROM occurrences WHERE token = $1`

	rows, err := s.pool.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("query occurrences for token: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var observedAt string
		if err := rows.Scan(&observedAt); err != nil {
			return nil, fmt.Errorf("scan occurrence row: %w", err)
		}
		result = append(result, observedAt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrence rows: %w", err)
	}

	return result, nil
}

// dedupe flattens the input multimap into unique (token, observed_at)
// rows. The input may itself carry value-equal duplicates from concurrent
// collector passes; storage-level uniqueness remains the backstop.
func dedupe(occurrences map[string][]time.Time) []domain.Occurrence {
	var rows []domain.Occurrence
	seen := make(map[domain.Occurrence]struct{})

	for token, stamps := range occurrences {
		if token == "" {
			continue
		}
		for _, ts := range stamps {
			occ := domain.Occurrence{Token: token, ObservedAt: domain.FormatTimestamp(ts)}
			if _, ok := seen[occ]; ok {
				continue
			}
			seen[occ] = struct{}{}
			rows = append(rows, occ)
		}
	}

	return rows
}
