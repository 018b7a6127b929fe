package stub

import (
	"context"

	"ticker-mention-lab/internal/domain"
)

// ItemSource returns fixed in-memory items for testing and demo runs.
// Implements scan.ItemSource.
type ItemSource struct {
	items map[string][]*domain.Item // keyed by source
	err   error
}

// NewItemSource creates a stub source serving the given items per source.
func NewItemSource(items map[string][]*domain.Item) *ItemSource {
	return &ItemSource{items: items}
}

// NewFailingItemSource creates a stub source that always fails.
func NewFailingItemSource(err error) *ItemSource {
	return &ItemSource{err: err}
}

// Fetch returns copies of the configured items for a source.
func (s *ItemSource) Fetch(_ context.Context, source string) ([]*domain.Item, error) {
	if s.err != nil {
		return nil, s.err
	}

	var result []*domain.Item
	for _, item := range s.items[source] {
		copy := *item
		result = append(result, &copy)
	}
	return result, nil
}
