package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIncompleteRecord = errors.New("incomplete record")
	ErrInvalidSyntax    = errors.New("invalid syntax")
	ErrMalformedValue   = errors.New("malformed value")
	ErrUnexpectedEOF    = errors.New("unexpected end of file")
)

// ParseError locates a load failure. Kind is one of the sentinel errors above
// and is matched by errors.Is. Line is 1-based; it is zero for
// ErrUnexpectedEOF.
type ParseError struct {
	Kind    error
	Line    int
	Field   string
	Missing []string
	Msg     string
	Err     error
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, " in field %q", e.Field)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Missing, ", "))
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func syntaxError(line int, format string, args ...any) error {
	return &ParseError{Kind: ErrInvalidSyntax, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func malformed(line int, field string, err error) error {
	return &ParseError{Kind: ErrMalformedValue, Line: line, Field: field, Err: err}
}

func incomplete(line int, missing []string) error {
	return &ParseError{Kind: ErrIncompleteRecord, Line: line, Missing: missing}
}

func unexpectedEOF(openedAt int, inside string) error {
	return &ParseError{Kind: ErrUnexpectedEOF, Msg: fmt.Sprintf("%s opened at line %d is not closed", inside, openedAt)}
}
