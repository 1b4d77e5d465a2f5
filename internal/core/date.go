package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

// Years a date may carry; the text form has exactly four year digits.
const (
	minYear = 1
	maxYear = 9999
)

// Date is a calendar day without a time component. The wrapped time is
// always midnight UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseMDY parses the ledger date form M/D/YYYY. Leading zeros are accepted
// but not required. The result must be a real calendar day, so 2/30/2021 is
// rejected instead of rolling over into March.
func ParseMDY(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q is not M/D/YYYY", ErrInvalidDate, s)
	}
	month, err := parseDatePart(parts[0], 1, 2)
	if err != nil {
		return Date{}, fmt.Errorf("%w: month %q", ErrInvalidDate, parts[0])
	}
	day, err := parseDatePart(parts[1], 1, 2)
	if err != nil {
		return Date{}, fmt.Errorf("%w: day %q", ErrInvalidDate, parts[1])
	}
	year, err := parseDatePart(parts[2], 4, 4)
	if err != nil || year < minYear {
		return Date{}, fmt.Errorf("%w: year %q", ErrInvalidDate, parts[2])
	}

	d := NewDate(year, month, day)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return Date{}, fmt.Errorf("%w: %q is not a calendar day", ErrInvalidDate, s)
	}
	return d, nil
}

func parseDatePart(s string, minLen, maxLen int) (int, error) {
	if len(s) < minLen || len(s) > maxLen {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// MDY formats the date as M/D/YYYY without leading zeros.
func (d Date) MDY() string {
	return fmt.Sprintf("%d/%d/%04d", d.Month(), d.Day(), d.Year())
}

// Validate rejects the zero date and years that M/D/YYYY cannot carry.
func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	if y := d.Year(); y < minYear || y > maxYear {
		return fmt.Errorf("%w: year %d outside %d..%d", ErrInvalidDate, y, minYear, maxYear)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Compare orders dates chronologically.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

// Equal reports whether both dates name the same day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}
