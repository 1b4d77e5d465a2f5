package core

import (
	"errors"
	"math"
	"testing"
)

func sample(desc string, y, m, d int) Activity {
	return Activity{
		Description:  desc,
		Date:         NewDate(y, m, d),
		AcademicYear: 2021,
		Contact:      Contact{Name: "Jane Doe", Email: "jane@x.org", Phone: "555-1212"},
		Hours:        1.5,
		Details:      "<p>notes</p>",
	}
}

func TestParseMDY(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"9/3/2021", NewDate(2021, 9, 3), true},
		{"09/03/2021", NewDate(2021, 9, 3), true},
		{"12/31/1999", NewDate(1999, 12, 31), true},
		{"2/29/2024", NewDate(2024, 2, 29), true},
		{"2/29/2023", Date{}, false},
		{"2/30/2021", Date{}, false},
		{"13/1/2021", Date{}, false},
		{"0/1/2021", Date{}, false},
		{"1/1/21", Date{}, false},
		{"1-1-2021", Date{}, false},
		{"1/1/2021/1", Date{}, false},
		{"a/1/2021", Date{}, false},
		{"+1/1/2021", Date{}, false},
		{"1/1/0000", Date{}, false},
		{"1/1/10000", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseMDY(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseMDY(%q) unexpected error: %v", tc.in, err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("ParseMDY(%q) = %v, want %v", tc.in, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseMDY(%q) error = %v, want ErrInvalidDate", tc.in, err)
		}
	}
}

func TestDateMDY(t *testing.T) {
	if got := NewDate(2021, 9, 3).MDY(); got != "9/3/2021" {
		t.Fatalf("MDY = %q", got)
	}
	if got := NewDate(2022, 11, 25).MDY(); got != "11/25/2022" {
		t.Fatalf("MDY = %q", got)
	}
}

func TestDateValidateMatchesParse(t *testing.T) {
	for _, d := range []Date{NewDate(2, 1, 1), NewDate(9999, 12, 31)} {
		if err := d.Validate(); err != nil {
			t.Fatalf("Validate(%s) = %v", d.MDY(), err)
		}
		got, err := ParseMDY(d.MDY())
		if err != nil || !got.Equal(d) {
			t.Fatalf("ParseMDY(%q) = %v, %v", d.MDY(), got, err)
		}
	}
}

func TestActivityValidate(t *testing.T) {
	good := sample("Library", 2021, 9, 3)
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zeroHours := good
	zeroHours.Hours = 0
	if err := zeroHours.Validate(); err != nil {
		t.Fatalf("zero hours should be valid, got %v", err)
	}

	bads := []struct {
		name string
		mut  func(a *Activity)
		want error
	}{
		{"empty description", func(a *Activity) { a.Description = "" }, ErrEmptyDescription},
		{"blank description", func(a *Activity) { a.Description = "   " }, ErrEmptyDescription},
		{"negative hours", func(a *Activity) { a.Hours = -1 }, ErrInvalidHours},
		{"NaN hours", func(a *Activity) { a.Hours = math.NaN() }, ErrInvalidHours},
		{"infinite hours", func(a *Activity) { a.Hours = math.Inf(1) }, ErrInvalidHours},
		{"zero date", func(a *Activity) { a.Date = Date{} }, ErrInvalidDate},
		{"five-digit year", func(a *Activity) { a.Date = NewDate(10000, 1, 1) }, ErrInvalidDate},
		{"negative year", func(a *Activity) { a.Date = NewDate(-5, 6, 1) }, ErrInvalidDate},
		{"zero academic year", func(a *Activity) { a.AcademicYear = 0 }, ErrInvalidAcademicYear},
		{"multiline description", func(a *Activity) { a.Description = "a\nb" }, ErrMultilineField},
		{"multiline phone", func(a *Activity) { a.Contact.Phone = "1\r2" }, ErrMultilineField},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			a := good
			tc.mut(&a)
			if err := a.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	a := sample("Library", 2021, 9, 3)
	b := sample("Library", 2021, 10, 1)
	c := sample("Shelter", 2021, 1, 1)

	if Compare(a, b) >= 0 {
		t.Fatalf("earlier date should sort first")
	}
	if Compare(b, c) >= 0 {
		t.Fatalf("description is the primary key")
	}
	other := a
	other.Hours = 9
	if Compare(a, other) != 0 {
		t.Fatalf("records with equal keys must be order-equal")
	}
	if a.Equal(other) {
		t.Fatalf("Equal must compare every field")
	}
}

func TestAcademicYearLabel(t *testing.T) {
	cases := map[int]string{
		2021: "2021-22",
		1999: "1999-00",
		2008: "2008-09",
		2099: "2099-00",
	}
	for year, want := range cases {
		if got := AcademicYearLabel(year); got != want {
			t.Fatalf("AcademicYearLabel(%d) = %q, want %q", year, got, want)
		}
	}
}

func TestParseHours(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"3.5", 3.5, true},
		{"3,5", 3.5, true},
		{"0", 0, true},
		{" 12 ", 12, true},
		{".5", 0.5, true},
		{"2.", 2, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseHours(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseHours(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidHours) {
			t.Fatalf("ParseHours(%q) error = %v, want ErrInvalidHours", tc.in, err)
		}
	}
	if FormatHours(3.5) != "3.5" || FormatHours(2) != "2" || FormatHours(0.1) != "0.1" {
		t.Fatalf("unexpected FormatHours output")
	}
}
