package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseHours converts a decimal string to a number of hours.
//
// It accepts both dot (1.5) and comma (1,5) decimal separators. Signs,
// exponents and anything that is not a plain non-negative decimal are
// rejected with ErrInvalidHours.
func ParseHours(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidHours
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidHours
	}
	digits := 0
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) || r > unicode.MaxASCII {
				return 0, ErrInvalidHours
			}
			digits++
		}
	}
	if digits == 0 {
		return 0, ErrInvalidHours
	}
	h, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(h, 0) {
		return 0, ErrInvalidHours
	}
	return h, nil
}

// FormatHours renders hours in the shortest form that parses back to the same
// value.
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
