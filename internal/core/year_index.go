package core

import "sort"

// YearIndex is the ordered collection of year groups backing one ledger.
// Groups keep the order in which their academic year was first seen.
type YearIndex struct {
	groups []*YearGroup
}

func NewYearIndex() *YearIndex {
	return &YearIndex{}
}

// AddData files a under the group for its academic year, creating the group
// on first sight.
func (x *YearIndex) AddData(a Activity) {
	g, ok := x.Lookup(a.AcademicYear)
	if !ok {
		g = NewYearGroup(a.AcademicYear)
		x.groups = append(x.groups, g)
	}
	g.AddRecord(a)
}

// IndexOf returns the position of the group for year, or -1.
func (x *YearIndex) IndexOf(year int) int {
	for i, g := range x.groups {
		if g.academicYear == year {
			return i
		}
	}
	return -1
}

// Lookup returns the group for year.
func (x *YearIndex) Lookup(year int) (*YearGroup, bool) {
	i := x.IndexOf(year)
	if i < 0 {
		return nil, false
	}
	return x.groups[i], true
}

// Groups returns the groups in index order.
func (x *YearIndex) Groups() []*YearGroup {
	out := make([]*YearGroup, len(x.groups))
	copy(out, x.groups)
	return out
}

// Len returns the number of year groups.
func (x *YearIndex) Len() int {
	return len(x.groups)
}

// Size returns the number of records across all years.
func (x *YearIndex) Size() int {
	n := 0
	for _, g := range x.groups {
		n += g.size
	}
	return n
}

// YearLabels returns the sorted set of year labels, for a year picker.
func (x *YearIndex) YearLabels() []string {
	seen := make(map[string]struct{}, len(x.groups))
	labels := make([]string, 0, len(x.groups))
	for _, g := range x.groups {
		l := g.YearLabel()
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Remove deletes a from the group of its academic year.
func (x *YearIndex) Remove(a Activity) error {
	g, ok := x.Lookup(a.AcademicYear)
	if !ok {
		return ErrRecordNotFound
	}
	return g.RemoveRecord(a)
}

// Replace swaps old for updated, moving the record to another year group when
// the academic year changed.
func (x *YearIndex) Replace(old, updated Activity) error {
	from, ok := x.Lookup(old.AcademicYear)
	if !ok {
		return ErrRecordNotFound
	}
	if to, ok := x.Lookup(updated.AcademicYear); ok && from.SameYear(to) {
		return from.ReplaceRecord(old, updated)
	}
	if err := from.RemoveRecord(old); err != nil {
		return err
	}
	x.AddData(updated)
	return nil
}

// Adjacent returns the group step positions away from year in index order,
// used for previous/next navigation.
func (x *YearIndex) Adjacent(year, step int) (*YearGroup, bool) {
	i := x.IndexOf(year)
	if i < 0 {
		return nil, false
	}
	j := i + step
	if j < 0 || j >= len(x.groups) {
		return nil, false
	}
	return x.groups[j], true
}

// Summaries returns one summary per group, in index order.
func (x *YearIndex) Summaries() []YearSummary {
	out := make([]YearSummary, 0, len(x.groups))
	for _, g := range x.groups {
		out = append(out, g.Summary())
	}
	return out
}

// Records returns every record, group by group in index order.
func (x *YearIndex) Records() []Activity {
	out := make([]Activity, 0, x.Size())
	for _, g := range x.groups {
		out = append(out, g.Records()...)
	}
	return out
}
