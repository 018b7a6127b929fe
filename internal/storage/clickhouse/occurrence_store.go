package clickhouse

import (
	"context"
	"fmt"
	"time"

	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/storage"
)

// OccurrenceStore implements storage.OccurrenceStore using ClickHouse.
// MergeTree engines do not enforce uniqueness at insert time, so the store
// checks existence before inserting and reads with uniqExact; the
// ReplacingMergeTree key collapses any duplicates that race past the check
// at merge time.
type OccurrenceStore struct {
	conn *Conn

	// Write retry policy. Reads are never retried.
	writeAttempts   int
	writeRetryDelay time.Duration
}

// NewOccurrenceStore creates a new OccurrenceStore with the reference
// retry policy (5 attempts at 0.5s intervals).
func NewOccurrenceStore(conn *Conn) *OccurrenceStore {
	return &OccurrenceStore{
		conn:            conn,
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

// Append inserts occurrences not already stored, as a single batch.
// The exists-check plus insert sequence is retried on transient errors;
// exhaustion surfaces as storage.ErrUnavailable.
//
// Returns the count of newly inserted pairs. Two racing appends of the
// same pair can both pass the exists check and both count the row, so
// the return is at-least-once per stored pair; the ReplacingMergeTree
// key and uniqExact reads keep the stored data itself deduplicated.
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
	var fresh []domain.Occurrence
	for _, occ := range rows {
		exists, err := s.exists(ctx, occ.Token, occ.ObservedAt)
		if err != nil {
			return 0, fmt.Errorf("check exists: %w", err)
		}
		if !exists {
			fresh = append(fresh, occ)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO occurrences (token, observed_at)`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}

	for _, occ := range fresh {
		if err := batch.Append(occ.Token, occ.ObservedAt); err != nil {
			return 0, fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}

	return len(fresh), nil
}

// TopTokens returns up to n tokens by distinct occurrence count descending,
// ties broken lexically ascending.
func (s *OccurrenceStore) TopTokens(ctx context.Context, n int) ([]domain.TokenCount, error) {
	if n <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT token, uniqExact(observed_at) AS occurrence_count
		FROM occurrences
		GROUP BY token
		ORDER BY occurrence_count DESC, token ASC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("query top tokens: %w", err)
	}
	defer rows.Close()

	var result []domain.TokenCount
	for rows.Next() {
		var token string
		var count uint64
		if err := rows.Scan(&token, &count); err != nil {
			return nil, fmt.Errorf("scan top token row: %w", err)
		}
		result = append(result, domain.TokenCount{Token: token, Count: int(count)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top token rows: %w", err)
	}

	return result, nil
}

// OccurrencesFor returns the distinct stored timestamp strings for a token.
func (s *OccurrenceStore) OccurrencesFor(ctx context.Context, token string) ([]string, error) {
	if token == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `SELECT DISTINCT observed_at FROM occurrences WHERE token = ?`

	rows, err := s.conn.Query(ctx, query, token)
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

// exists checks whether a (token, observed_at) pair is already stored.
func (s *OccurrenceStore) exists(ctx context.Context, token, observedAt string) (bool, error) {
	query := `SELECT count() FROM occurrences WHERE token = ? AND observed_at = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, token, observedAt).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// dedupe flattens the input multimap into unique (token, observed_at) rows.
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
