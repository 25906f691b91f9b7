package database

import "strings"

// upsertBatchSize bounds rows per multi-row INSERT so the bind-parameter count
// stays well under SQLite's per-statement limit even for the widest table.
const upsertBatchSize = 100

type batchRange struct {
	start, end int
}

func batches(n int) []batchRange {
	var ranges []batchRange
	for start := 0; start < n; start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > n {
			end = n
		}
		ranges = append(ranges, batchRange{start: start, end: end})
	}
	return ranges
}

// notInDelete builds the id-set difference delete shared by feeds and
// categories: everything the user owns that the remote did not report.
func notInDelete(table string, userID int64, keepIDs []int64) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE user_id = ? AND id NOT IN (")

	args := make([]interface{}, 0, len(keepIDs)+1)
	args = append(args, userID)

	for i, id := range keepIDs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("?")
		args = append(args, id)
	}
	sb.WriteString(")")

	return sb.String(), args
}
