package sheets

import (
	"errors"
	"fmt"

	"cltracker/internal/core"
)

// ErrReportNotFound is returned by readers for years never exported.
var ErrReportNotFound = errors.New("report not found")

// TotalLabel marks the closing row of a report.
const TotalLabel = "TOTAL"

// Header is the first row of every report.
var Header = []string{"Description", "Date", "Hours", "Contact", "Email", "Phone", "Details"}

// Report is the tabular rendering of one academic year: records grouped by
// description in description order, each group in date order, followed by
// a TOTAL row.
type Report struct {
	AcademicYear int
	Label        string
	Rows         [][]string
	TotalHours   float64
}

// BuildReport renders g as a report.
func BuildReport(g *core.YearGroup) Report {
	r := Report{
		AcademicYear: g.AcademicYear(),
		Label:        g.YearLabel(),
		Rows:         make([][]string, 0, g.Size()),
	}
	for _, desc := range g.AllDescriptions() {
		for _, a := range g.RecordsFor(desc) {
			r.Rows = append(r.Rows, []string{
				a.Description,
				a.Date.MDY(),
				core.FormatHours(a.Hours),
				a.Contact.Name,
				a.Contact.Email,
				a.Contact.Phone,
				a.Details,
			})
			r.TotalHours += a.Hours
		}
	}
	return r
}

// TotalRow returns the closing row with the summed hours.
func (r Report) TotalRow() []string {
	row := make([]string, len(Header))
	row[0] = TotalLabel
	row[2] = core.FormatHours(r.TotalHours)
	return row
}

// Values returns header, data rows and the total row, ready to be written
// as a grid.
func (r Report) Values() [][]string {
	out := make([][]string, 0, len(r.Rows)+2)
	out = append(out, append([]string(nil), Header...))
	out = append(out, r.Rows...)
	return append(out, r.TotalRow())
}

// ParseValues turns a grid written from Values back into a report. Short rows
// are padded; AcademicYear and Label are left to the caller.
func ParseValues(values [][]string) (Report, error) {
	if len(values) < 2 {
		return Report{}, fmt.Errorf("expected header and total rows, got %d rows", len(values))
	}
	if at(values[0], 0) != Header[0] {
		return Report{}, fmt.Errorf("unexpected header %q", at(values[0], 0))
	}
	last := values[len(values)-1]
	if at(last, 0) != TotalLabel {
		return Report{}, fmt.Errorf("missing %s row", TotalLabel)
	}
	total, err := core.ParseHours(at(last, 2))
	if err != nil {
		return Report{}, fmt.Errorf("total hours: %w", err)
	}

	r := Report{TotalHours: total, Rows: make([][]string, 0, len(values)-2)}
	for _, raw := range values[1 : len(values)-1] {
		row := make([]string, len(Header))
		for i := range row {
			row[i] = at(raw, i)
		}
		r.Rows = append(r.Rows, row)
	}
	return r, nil
}

func at(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
