package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cltracker/internal/core"
	"cltracker/internal/log"
)

// ErrUnencodable is returned by Save for records the text format cannot hold.
var ErrUnencodable = errors.New("record cannot be encoded")

// Save writes every record of x: groups in index order, descriptions sorted,
// records in list order. All records are checked before the first byte is
// written, so a rejected index leaves w untouched.
func (c *Codec) Save(x *core.YearIndex, w io.Writer) error {
	records := x.Records()
	for i, a := range records {
		if err := c.check(a); err != nil {
			return fmt.Errorf("record %d (%s %s): %w", i+1, a.Description, a.Date.MDY(), err)
		}
	}

	bw := &blockWriter{w: bufio.NewWriter(w)}
	for i, a := range records {
		if i > 0 {
			bw.line("")
		}
		bw.block(a)
	}
	if bw.err == nil {
		bw.err = bw.w.Flush()
	}
	if bw.err != nil {
		return fmt.Errorf("write ledger: %w", bw.err)
	}

	c.logger.Debug("Ledger saved", log.NewFields().WithIndex(x).WithOperation(log.OpSave).ToSlice()...)
	return nil
}

func (c *Codec) check(a core.Activity) error {
	if c.opts.ValidateOnSave {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	for _, v := range []string{a.Description, a.Contact.Name, a.Contact.Email, a.Contact.Phone} {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: %w", ErrUnencodable, core.ErrMultilineField)
		}
	}
	for _, l := range strings.Split(a.Details, "\n") {
		if strings.TrimSuffix(l, "\r") == closeDetails {
			return fmt.Errorf("%w: details contain a %s line", ErrUnencodable, closeDetails)
		}
	}
	return nil
}

// blockWriter keeps the first write error and turns later writes into no-ops.
type blockWriter struct {
	w   *bufio.Writer
	err error
}

func (b *blockWriter) line(s string) {
	if b.err != nil {
		return
	}
	if _, err := b.w.WriteString(s); err != nil {
		b.err = err
		return
	}
	b.err = b.w.WriteByte('\n')
}

func (b *blockWriter) field(k fieldKind, value string) {
	b.line(fieldNames[k] + "=" + value)
}

func (b *blockWriter) block(a core.Activity) {
	b.line(openActivity)
	b.field(fieldDesc, a.Description)
	b.field(fieldDate, a.Date.MDY())
	b.field(fieldYear, strconv.Itoa(a.AcademicYear))
	b.field(fieldContactName, a.Contact.Name)
	b.field(fieldContactEmail, a.Contact.Email)
	b.field(fieldContactPhone, a.Contact.Phone)
	b.field(fieldHours, core.FormatHours(a.Hours))
	b.line(openDetails)
	if a.Details != "" {
		b.line(a.Details)
	}
	b.line(closeDetails)
	b.line(closeActivity)
}
