// Package ledger reads and writes the activity ledger text format.
//
// A ledger is a sequence of activity blocks separated by blank lines:
//
//	~Activity~
//	desc=Library
//	date=9/3/2021
//	year=2021
//	contactname=Jane Doe
//	contactemail=jane@x.org
//	contactphone=555-1212
//	hours=3.5
//	~~Details~~
//	Helped shelve books.
//	~~/Details~~
//	~/Activity~
//
// Loading is a single forward pass and stops at the first error, which is
// reported as a *ParseError carrying the offending line.
package ledger

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cltracker/internal/core"
	"cltracker/internal/log"
)

const (
	openActivity  = "~Activity~"
	closeActivity = "~/Activity~"
	openDetails   = "~~Details~~"
	closeDetails  = "~~/Details~~"
)

// Options configures a Codec.
type Options struct {
	// ValidateOnSave runs core.Activity.Validate on every record before
	// anything is written. Records that cannot be encoded at all are always
	// rejected.
	ValidateOnSave bool
	// Logger receives debug output; nil discards it.
	Logger *log.Logger
}

// DefaultOptions validates on save and discards logs.
func DefaultOptions() Options {
	return Options{ValidateOnSave: true}
}

// Codec converts between ledger text and a core.YearIndex.
type Codec struct {
	opts   Options
	logger *log.Logger
}

func NewCodec(opts Options) *Codec {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &Codec{opts: opts, logger: logger.WithComponent(log.ComponentLedger)}
}

// Load parses a whole ledger. On failure no index is returned.
func Load(r io.Reader) (*core.YearIndex, error) {
	return NewCodec(DefaultOptions()).Load(r)
}

// Save writes x in canonical form.
func Save(x *core.YearIndex, w io.Writer) error {
	return NewCodec(DefaultOptions()).Save(x, w)
}

type state int

const (
	stateOutside state = iota
	stateInBlock
	stateInDetails
)

type parser struct {
	state        state
	line         int
	blockStart   int
	detailsStart int
	rec          recordBuilder
	index        *core.YearIndex
}

func (c *Codec) Load(r io.Reader) (*core.YearIndex, error) {
	start := time.Now()
	p := &parser{index: core.NewYearIndex()}
	br := bufio.NewReader(r)
	for {
		raw, readErr := br.ReadString('\n')
		if raw != "" {
			p.line++
			if err := p.feed(strings.TrimSuffix(raw, "\n")); err != nil {
				c.logger.Debug("Ledger load failed", log.FieldLine, p.line, log.FieldError, err)
				return nil, err
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read ledger after line %d: %w", p.line, readErr)
		}
	}
	if err := p.finish(); err != nil {
		c.logger.Debug("Ledger load failed", log.FieldError, err)
		return nil, err
	}

	fields := log.NewFields().WithIndex(p.index).WithOperation(log.OpLoad).WithDuration(time.Since(start))
	c.logger.Debug("Ledger loaded", fields.ToSlice()...)
	return p.index, nil
}

// feed takes one line without its "\n". A trailing "\r" is ignored for
// structure, but details lines are kept as read.
func (p *parser) feed(raw string) error {
	line := strings.TrimSuffix(raw, "\r")
	switch p.state {
	case stateOutside:
		return p.outside(line)
	case stateInBlock:
		return p.inBlock(line)
	default:
		return p.inDetails(line, raw)
	}
}

func (p *parser) outside(line string) error {
	switch {
	case strings.TrimSpace(line) == "":
		return nil
	case line == openActivity:
		p.state = stateInBlock
		p.blockStart = p.line
		p.rec = recordBuilder{}
		return nil
	case line == closeActivity:
		return syntaxError(p.line, "%s without an open activity", closeActivity)
	default:
		return syntaxError(p.line, "expected %s or a blank line, got %q", openActivity, line)
	}
}

func (p *parser) inBlock(line string) error {
	switch line {
	case openActivity:
		return syntaxError(p.line, "nested %s; activity opened at line %d is not closed", openActivity, p.blockStart)
	case openDetails:
		if p.rec.has(fieldDetails) {
			return syntaxError(p.line, "second details block in one activity")
		}
		p.state = stateInDetails
		p.detailsStart = p.line
		return nil
	case closeActivity:
		act, missing := p.rec.build()
		if len(missing) > 0 {
			return incomplete(p.line, missing)
		}
		p.index.AddData(act)
		p.rec = recordBuilder{}
		p.state = stateOutside
		return nil
	}

	k, value, ok := lookupField(line)
	if !ok {
		return syntaxError(p.line, "unrecognized line %q inside activity", line)
	}
	if p.rec.has(k) {
		return syntaxError(p.line, "field %q repeated", k.String())
	}
	if err := p.rec.set(k, value); err != nil {
		return malformed(p.line, k.String(), err)
	}
	return nil
}

func (p *parser) inDetails(line, raw string) error {
	if line == closeDetails {
		p.rec.closeDetails()
		p.state = stateInBlock
		return nil
	}
	p.rec.addDetailsLine(raw)
	return nil
}

func (p *parser) finish() error {
	switch p.state {
	case stateInBlock:
		return unexpectedEOF(p.blockStart, "activity")
	case stateInDetails:
		return unexpectedEOF(p.detailsStart, "details block")
	default:
		return nil
	}
}

// Checksum returns the hex SHA-256 of the canonical encoding of x.
func (c *Codec) Checksum(x *core.YearIndex) (string, error) {
	h := sha256.New()
	if err := c.Save(x, h); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
