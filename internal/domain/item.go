package domain

import "time"

// ItemKind distinguishes a top-level forum post from a reply.
// Informational only; both kinds are scanned the same way.
type ItemKind string

const (
	ItemKindPost    ItemKind = "POST"
	ItemKindComment ItemKind = "COMMENT"
)

// String returns the string representation of ItemKind.
func (k ItemKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k ItemKind) IsValid() bool {
	return k == ItemKindPost || k == ItemKindComment
}

// Item is one unit of scanned forum text with its observation time.
type Item struct {
	Text       string    // raw text to scan for tokens
	ObservedAt time.Time // creation time of the post/comment, UTC
	Kind       ItemKind  // POST or COMMENT
	Source     string    // forum identifier the item came from, e.g. subreddit name
}
