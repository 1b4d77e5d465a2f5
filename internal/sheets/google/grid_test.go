package google

import (
	"testing"

	ports "cltracker/internal/sheets"
)

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{1: "A", 7: "G", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for n, want := range tests {
		if got := columnLetter(n); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestQuoteTitle(t *testing.T) {
	if got := quoteTitle("O'Neil 2021-22"); got != "'O''Neil 2021-22'" {
		t.Errorf("quoteTitle() = %q", got)
	}
	if got := reportRange("Activities 2021-22"); got != "'Activities 2021-22'!A:G" {
		t.Errorf("reportRange() = %q", got)
	}
}

func TestParseReport(t *testing.T) {
	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}

	t.Run("trimmed trailing cells", func(t *testing.T) {
		r, err := parseReport([][]any{
			header,
			{"Library", "3/15/2021", "2.5"},
			{"TOTAL", "", "2.5"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(r.Rows) != 1 || len(r.Rows[0]) != len(ports.Header) || r.Rows[0][6] != "" {
			t.Errorf("unexpected rows %v", r.Rows)
		}
		if r.TotalHours != 2.5 {
			t.Errorf("TotalHours = %v", r.TotalHours)
		}
	})

	errorCases := map[string][][]any{
		"empty":         nil,
		"bad header":    {{"Nope"}, {"TOTAL", "", "0"}},
		"missing total": {header, {"Library", "3/15/2021", "2.5"}},
		"bad total":     {header, {"TOTAL", "", "lots"}},
	}
	for name, values := range errorCases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseReport(values); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
