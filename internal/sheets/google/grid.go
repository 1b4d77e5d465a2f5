package google

import (
	"fmt"
	"strings"

	ports "cltracker/internal/sheets"
)

// columnLetter converts a 1-based column number to its A1 letters.
func columnLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// quoteTitle quotes a tab name for use in A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func reportRange(title string) string {
	return fmt.Sprintf("%s!A:%s", quoteTitle(title), columnLetter(len(ports.Header)))
}

func toGrid(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return fmt.Sprint(row[i])
}

// parseReport turns sheet values back into a report. The API trims
// trailing empty cells, so rows may be short.
func parseReport(values [][]any) (ports.Report, error) {
	grid := make([][]string, len(values))
	for i, raw := range values {
		row := make([]string, len(raw))
		for j := range raw {
			row[j] = cell(raw, j)
		}
		grid[i] = row
	}
	return ports.ParseValues(grid)
}
