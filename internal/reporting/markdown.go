package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Ticker Mention Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Granularity: %s | Tokens: %d\n\n", r.Granularity, r.TokenCount))

	// Top Tokens
	sb.WriteString("## Top Tokens\n\n")
	if len(r.TopTokens) > 0 {
		sb.WriteString("| Rank | Token | Mentions |\n")
		sb.WriteString("|------|-------|----------|\n")
		for i, tc := range r.TopTokens {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d |\n", i+1, tc.Token, tc.Count))
		}
	} else {
		sb.WriteString("No mentions recorded.\n")
	}
	sb.WriteString("\n")

	// Series
	sb.WriteString("## Mention Series\n\n")
	if len(r.SeriesRows) > 0 {
		sb.WriteString("| Token | Bucket | Count |\n")
		sb.WriteString("|-------|--------|-------|\n")
		for _, row := range r.SeriesRows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n",
				row.Token, row.BucketStart.Format("2006-01-02"), row.Count))
		}
	} else {
		sb.WriteString("No series data available.\n")
	}
	sb.WriteString("\n")

	// Data Quality
	if r.MalformedTimestamps > 0 {
		sb.WriteString("## Data Quality\n\n")
		sb.WriteString(fmt.Sprintf("Skipped %d stored timestamps that failed to parse.\n\n", r.MalformedTimestamps))
	}

	return sb.String()
}
