package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"cltracker/internal/core"
)

type fieldKind int

const (
	fieldDesc fieldKind = iota
	fieldDate
	fieldYear
	fieldContactName
	fieldContactEmail
	fieldContactPhone
	fieldHours
	fieldDetails
	numFields
)

// Field keys in canonical order. Details is a sub-block, not a key=value line.
var fieldNames = [numFields]string{
	fieldDesc:         "desc",
	fieldDate:         "date",
	fieldYear:         "year",
	fieldContactName:  "contactname",
	fieldContactEmail: "contactemail",
	fieldContactPhone: "contactphone",
	fieldHours:        "hours",
	fieldDetails:      "details",
}

func (k fieldKind) String() string { return fieldNames[k] }

// lookupField matches a line against the literal field prefixes and returns the
// value after the first '='.
func lookupField(line string) (fieldKind, string, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return 0, "", false
	}
	for k := fieldDesc; k < fieldDetails; k++ {
		if fieldNames[k] == key {
			return k, value, true
		}
	}
	return 0, "", false
}

// recordBuilder accumulates the fields of one activity block. It only yields
// an activity once every field has been supplied.
type recordBuilder struct {
	act     core.Activity
	seen    [numFields]bool
	details []string
}

func (b *recordBuilder) has(k fieldKind) bool { return b.seen[k] }

// set parses value into field k. The returned error is the value problem
// only; the caller attaches the line.
func (b *recordBuilder) set(k fieldKind, value string) error {
	switch k {
	case fieldDesc:
		if strings.TrimSpace(value) == "" {
			return core.ErrEmptyDescription
		}
		b.act.Description = value
	case fieldDate:
		d, err := core.ParseMDY(value)
		if err != nil {
			return err
		}
		b.act.Date = d
	case fieldYear:
		y, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", core.ErrInvalidAcademicYear, value)
		}
		if y <= 0 || y > 9999 {
			return fmt.Errorf("%w: %d out of range", core.ErrInvalidAcademicYear, y)
		}
		b.act.AcademicYear = y
	case fieldContactName:
		b.act.Contact.Name = value
	case fieldContactEmail:
		b.act.Contact.Email = value
	case fieldContactPhone:
		b.act.Contact.Phone = value
	case fieldHours:
		h, err := core.ParseHours(value)
		if err != nil {
			return fmt.Errorf("%w: %q", err, value)
		}
		b.act.Hours = h
	default:
		return fmt.Errorf("field %s has no key=value form", k)
	}
	b.seen[k] = true
	return nil
}

func (b *recordBuilder) addDetailsLine(line string) {
	b.details = append(b.details, line)
}

func (b *recordBuilder) closeDetails() {
	b.act.Details = strings.Join(b.details, "\n")
	b.seen[fieldDetails] = true
}

func (b *recordBuilder) missing() []string {
	var out []string
	for k := fieldDesc; k < numFields; k++ {
		if !b.seen[k] {
			out = append(out, k.String())
		}
	}
	return out
}

// build returns the finished activity, or the names of the missing fields.
func (b *recordBuilder) build() (core.Activity, []string) {
	if m := b.missing(); len(m) > 0 {
		return core.Activity{}, m
	}
	return b.act, nil
}
