package core

import (
	"errors"
	"sort"
)

var ErrRecordNotFound = errors.New("record not found")

// YearGroup holds every activity filed under one academic year, grouped by
// description. Descriptions are kept sorted; within a description records are
// ordered by date, with ties kept in insertion order.
type YearGroup struct {
	academicYear int
	descriptions []string
	records      map[string][]Activity
	size         int
}

func NewYearGroup(academicYear int) *YearGroup {
	return &YearGroup{
		academicYear: academicYear,
		records:      make(map[string][]Activity),
	}
}

// AcademicYear is the group's identity.
func (g *YearGroup) AcademicYear() int {
	return g.academicYear
}

// SameYear reports whether both groups describe the same academic year.
func (g *YearGroup) SameYear(o *YearGroup) bool {
	return o != nil && g.academicYear == o.academicYear
}

// YearLabel formats the academic year as "YYYY-YY".
func (g *YearGroup) YearLabel() string {
	return AcademicYearLabel(g.academicYear)
}

// Size returns the number of records across all descriptions.
func (g *YearGroup) Size() int {
	return g.size
}

// AddRecord files a under its description. Records are inserted in date
// order instead of appended, so a description lists its records by date
// whatever order the ledger blocks were in; equal dates keep insertion order.
func (g *YearGroup) AddRecord(a Activity) {
	list, ok := g.records[a.Description]
	if !ok {
		i := sort.SearchStrings(g.descriptions, a.Description)
		g.descriptions = append(g.descriptions, "")
		copy(g.descriptions[i+1:], g.descriptions[i:])
		g.descriptions[i] = a.Description
	}

	// Upper bound keeps records with an equal date in insertion order.
	i := sort.Search(len(list), func(i int) bool {
		return list[i].Date.Compare(a.Date) > 0
	})
	list = append(list, Activity{})
	copy(list[i+1:], list[i:])
	list[i] = a

	g.records[a.Description] = list
	g.size++
}

// RemoveRecord removes the first record equal to a. It returns
// ErrRecordNotFound when nothing matched; the size is unchanged in that case.
func (g *YearGroup) RemoveRecord(a Activity) error {
	list, ok := g.records[a.Description]
	if !ok {
		return ErrRecordNotFound
	}
	for i := range list {
		if !list[i].Equal(a) {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(g.records, a.Description)
			g.removeDescription(a.Description)
		} else {
			g.records[a.Description] = list
		}
		g.size--
		return nil
	}
	return ErrRecordNotFound
}

func (g *YearGroup) removeDescription(desc string) {
	i := sort.SearchStrings(g.descriptions, desc)
	if i < len(g.descriptions) && g.descriptions[i] == desc {
		g.descriptions = append(g.descriptions[:i], g.descriptions[i+1:]...)
	}
}

// ReplaceRecord swaps old for updated. The updated record is filed under its
// own description, which may differ from the old one.
func (g *YearGroup) ReplaceRecord(old, updated Activity) error {
	if err := g.RemoveRecord(old); err != nil {
		return err
	}
	g.AddRecord(updated)
	return nil
}

// RecordsFor returns a copy of the records filed under desc. Unknown
// descriptions yield an empty slice.
func (g *YearGroup) RecordsFor(desc string) []Activity {
	list := g.records[desc]
	out := make([]Activity, len(list))
	copy(out, list)
	return out
}

// AllDescriptions returns the sorted description set.
func (g *YearGroup) AllDescriptions() []string {
	out := make([]string, len(g.descriptions))
	copy(out, g.descriptions)
	return out
}

// Records returns every record in display order: descriptions sorted, then the
// per-description order.
func (g *YearGroup) Records() []Activity {
	out := make([]Activity, 0, g.size)
	for _, d := range g.descriptions {
		out = append(out, g.records[d]...)
	}
	return out
}

// TotalHours sums the hours of every record in the group.
func (g *YearGroup) TotalHours() float64 {
	var total float64
	for _, d := range g.descriptions {
		for _, a := range g.records[d] {
			total += a.Hours
		}
	}
	return total
}
