package domain

import (
	"fmt"
	"time"
)

// TimestampLayout is the fixed storage format for occurrence timestamps.
// All stored values are UTC; the layout carries no zone information.
const TimestampLayout = "2006-01-02 15:04:05"

// Occurrence is the atomic fact: a token was seen at a timestamp.
// Immutable once written; (Token, ObservedAt) is unique in storage.
type Occurrence struct {
	Token      string // 3-5 uppercase letters, candidate ticker symbol
	ObservedAt string // stored timestamp in TimestampLayout, UTC
}

// TokenCount pairs a token with its total stored occurrence count.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// FormatTimestamp renders a time in the fixed storage format (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp string. The value is assumed UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
