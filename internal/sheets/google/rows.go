package google

import (
	"fmt"
	"strings"

	"expensetracker/internal/core"
)

var columns = []string{"ID", "Owner", "Date", "Title", "Kind", "Category", "Amount", "Created"}

func headerRow() []interface{} {
	out := make([]interface{}, len(columns))
	for i, c := range columns {
		out[i] = c
	}
	return out
}

// rowValues lays t out in column order A..H.
func rowValues(t core.Transaction) []interface{} {
	return []interface{}{
		t.ID,
		t.Owner,
		t.Date.UTC().Format("2006-01-02"),
		t.Title,
		string(t.Kind),
		t.Category,
		core.FormatAmount(t.Amount),
		t.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

// findRow returns the 1-based sheet row whose first cell is id, or -1.
func findRow(values [][]interface{}, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return -1
}

// a1 builds "Sheet!range", quoting sheet names that need it.
func a1(sheet, rng string) string {
	if strings.ContainsAny(sheet, " '!") {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + rng
}
