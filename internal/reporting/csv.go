package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the report's series rows as CSV string.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("token,bucket_start,count\n")

	// Rows
	for _, row := range r.SeriesRows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d\n",
			row.Token,
			row.BucketStart.Format("2006-01-02"),
			row.Count,
		))
	}

	return sb.String()
}
