package domain

import "fmt"

// Granularity selects the calendar alignment for bucketed series.
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

// String returns the string representation of Granularity.
func (g Granularity) String() string {
	return string(g)
}

// IsValid checks if the granularity is a valid value.
func (g Granularity) IsValid() bool {
	return g == GranularityDay || g == GranularityWeek
}

// ParseGranularity parses a granularity string. Empty defaults to day.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "", "day":
		return GranularityDay, nil
	case "week":
		return GranularityWeek, nil
	default:
		return "", fmt.Errorf("invalid granularity %q: must be day or week", s)
	}
}
