package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/storage"
)

// OccurrenceStore is an in-memory implementation of
// storage.OccurrenceStore, used by tests and the memory backend.
type OccurrenceStore struct {
	mu   sync.RWMutex
	data map[string]map[string]struct{} // token -> set of observed_at strings
}

// NewOccurrenceStore creates a new in-memory occurrence store.
func NewOccurrenceStore() *OccurrenceStore {
	return &OccurrenceStore{
		data: make(map[string]map[string]struct{}),
	}
}

// Compile-time interface check.
var _ storage.OccurrenceStore = (*OccurrenceStore)(nil)

// Append inserts occurrences, skipping pairs already stored. Returns the
// count of newly inserted pairs. Never transiently fails, so the retry
// policy does not apply here.
func (s *OccurrenceStore) Append(_ context.Context, occurrences map[string][]time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for token, stamps := range occurrences {
		if token == "" {
			continue
		}
		for _, ts := range stamps {
			observedAt := domain.FormatTimestamp(ts)
			set, ok := s.data[token]
			if !ok {
				set = make(map[string]struct{})
				s.data[token] = set
			}
			if _, exists := set[observedAt]; exists {
				continue
			}
			set[observedAt] = struct{}{}
			inserted++
		}
	}

	return inserted, nil
}

// Seed stores raw timestamp strings directly, bypassing formatting.
// Test helper for exercising malformed stored values downstream.
func (s *OccurrenceStore) Seed(token string, raw ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.data[token]
	if !ok {
		set = make(map[string]struct{})
		s.data[token] = set
	}
	for _, r := range raw {
		set[r] = struct{}{}
	}
}

// TopTokens returns up to n tokens by count descending, token ascending.
func (s *OccurrenceStore) TopTokens(_ context.Context, n int) ([]domain.TokenCount, error) {
	if n <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.TokenCount, 0, len(s.data))
	for token, set := range s.data {
		result = append(result, domain.TokenCount{Token: token, Count: len(set)})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Token < result[j].Token
	})

	if len(result) > n {
		result = result[:n]
	}
	return result, nil
}

// OccurrencesFor returns all stored timestamp strings for a token,
// in unspecified order.
func (s *OccurrenceStore) OccurrencesFor(_ context.Context, token string) ([]string, error) {
	if token == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.data[token]
	result := make([]string, 0, len(set))
	for observedAt := range set {
		result = append(result, observedAt)
	}
	return result, nil
}
