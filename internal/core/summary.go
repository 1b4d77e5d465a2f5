package core

// DescriptionHours represents hours aggregated by description.
type DescriptionHours struct {
	Description string
	Records     int
	Hours       float64
}

// YearSummary is a compact summary for one academic year.
type YearSummary struct {
	AcademicYear  int
	Label         string
	Records       int
	TotalHours    float64
	ByDescription []DescriptionHours
}

// Summary aggregates the group per description, in description order.
func (g *YearGroup) Summary() YearSummary {
	s := YearSummary{
		AcademicYear:  g.academicYear,
		Label:         g.YearLabel(),
		Records:       g.size,
		ByDescription: make([]DescriptionHours, 0, len(g.descriptions)),
	}
	for _, d := range g.descriptions {
		row := DescriptionHours{Description: d}
		for _, a := range g.records[d] {
			row.Records++
			row.Hours += a.Hours
		}
		s.TotalHours += row.Hours
		s.ByDescription = append(s.ByDescription, row)
	}
	return s
}
