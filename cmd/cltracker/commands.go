package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"cltracker/internal/core"
	"cltracker/internal/ledger"
	"cltracker/internal/log"
	"cltracker/internal/sheets"
	"cltracker/internal/storage"
)

// recordFlags holds the string form of every activity field.
type recordFlags struct {
	desc         string
	date         string
	year         int
	contactName  string
	contactEmail string
	contactPhone string
	hours        string
	details      string
}

func (f *recordFlags) register(fs *flag.FlagSet, prefix string) {
	fs.StringVar(&f.desc, prefix+"desc", "", "description")
	fs.StringVar(&f.date, prefix+"date", "", "date as M/D/YYYY")
	fs.IntVar(&f.year, prefix+"year", 0, "academic year start, e.g. 2021 for 2021-22")
	fs.StringVar(&f.contactName, prefix+"contact-name", "", "contact name")
	fs.StringVar(&f.contactEmail, prefix+"contact-email", "", "contact email")
	fs.StringVar(&f.contactPhone, prefix+"contact-phone", "", "contact phone")
	fs.StringVar(&f.hours, prefix+"hours", "", "hours, dot or comma decimal")
	fs.StringVar(&f.details, prefix+"details", "", `details; "\n" starts a new line`)
}

// apply copies the flags named in set onto a. Only visited flags are
// applied, so an edit changes just what was asked for.
func (f *recordFlags) apply(a *core.Activity, prefix string, set map[string]bool) error {
	if set[prefix+"desc"] {
		a.Description = f.desc
	}
	if set[prefix+"date"] {
		d, err := core.ParseMDY(f.date)
		if err != nil {
			return fmt.Errorf("-%sdate: %w", prefix, err)
		}
		a.Date = d
	}
	if set[prefix+"year"] {
		a.AcademicYear = f.year
	}
	if set[prefix+"contact-name"] {
		a.Contact.Name = f.contactName
	}
	if set[prefix+"contact-email"] {
		a.Contact.Email = f.contactEmail
	}
	if set[prefix+"contact-phone"] {
		a.Contact.Phone = f.contactPhone
	}
	if set[prefix+"hours"] {
		h, err := core.ParseHours(f.hours)
		if err != nil {
			return fmt.Errorf("-%shours: %w", prefix, err)
		}
		a.Hours = h
	}
	if set[prefix+"details"] {
		a.Details = strings.ReplaceAll(f.details, `\n`, "\n")
	}
	return nil
}

func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func runAdd(_ context.Context, a *app, args []string) error {
	var f recordFlags
	fs := newFlagSet(a, "add")
	f.register(fs, "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := visited(fs)
	for _, required := range []string{"desc", "date", "year", "hours"} {
		if !set[required] {
			return fmt.Errorf("-%s is required", required)
		}
	}

	var act core.Activity
	if err := f.apply(&act, "", set); err != nil {
		return err
	}
	if err := a.svc.Add(act); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "added %s on %s to %s\n", act.Description, act.Date.MDY(), core.AcademicYearLabel(act.AcademicYear))
	return nil
}

// selectRecord finds the record a command targets by year, description and
// date. With duplicates on the same day the first one is returned.
func selectRecord(a *app, f *recordFlags) (core.Activity, error) {
	if f.year == 0 || f.desc == "" || f.date == "" {
		return core.Activity{}, errors.New("-year, -desc and -date select the record")
	}
	date, err := core.ParseMDY(f.date)
	if err != nil {
		return core.Activity{}, fmt.Errorf("-date: %w", err)
	}
	g, ok := a.svc.Lookup(f.year)
	if !ok {
		return core.Activity{}, fmt.Errorf("no records in %s", core.AcademicYearLabel(f.year))
	}
	for _, r := range g.RecordsFor(f.desc) {
		if r.Date.Equal(date) {
			return r, nil
		}
	}
	return core.Activity{}, fmt.Errorf("%s on %s: %w", f.desc, date.MDY(), core.ErrRecordNotFound)
}

func runRemove(_ context.Context, a *app, args []string) error {
	var sel recordFlags
	fs := newFlagSet(a, "remove")
	fs.IntVar(&sel.year, "year", 0, "academic year of the record")
	fs.StringVar(&sel.desc, "desc", "", "description of the record")
	fs.StringVar(&sel.date, "date", "", "date of the record")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := selectRecord(a, &sel)
	if err != nil {
		return err
	}
	if err := a.svc.Remove(rec); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %s on %s from %s\n", rec.Description, rec.Date.MDY(), core.AcademicYearLabel(rec.AcademicYear))
	return nil
}

func runEdit(_ context.Context, a *app, args []string) error {
	var sel, upd recordFlags
	fs := newFlagSet(a, "edit")
	fs.IntVar(&sel.year, "year", 0, "academic year of the record")
	fs.StringVar(&sel.desc, "desc", "", "description of the record")
	fs.StringVar(&sel.date, "date", "", "date of the record")
	upd.register(fs, "set-")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := selectRecord(a, &sel)
	if err != nil {
		return err
	}
	updated := rec
	if err := upd.apply(&updated, "set-", visited(fs)); err != nil {
		return err
	}
	if updated.Equal(rec) {
		fmt.Fprintln(a.out, "nothing to change")
		return nil
	}
	if err := a.svc.Edit(rec, updated); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated %s on %s in %s\n", updated.Description, updated.Date.MDY(), core.AcademicYearLabel(updated.AcademicYear))
	return nil
}

func runList(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "list")
	year := fs.Int("year", 0, "only this academic year")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var groups []*core.YearGroup
	if *year != 0 {
		g, ok := a.svc.Lookup(*year)
		if !ok {
			return fmt.Errorf("no records in %s", core.AcademicYearLabel(*year))
		}
		groups = append(groups, g)
	} else {
		for _, s := range a.svc.Summaries() {
			g, _ := a.svc.Lookup(s.AcademicYear)
			groups = append(groups, g)
		}
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\n", g.YearLabel())
		for _, desc := range g.AllDescriptions() {
			fmt.Fprintf(tw, "  %s\n", desc)
			for _, r := range g.RecordsFor(desc) {
				fmt.Fprintf(tw, "    %s\t%sh\t%s\t%s\t%s\t%s\n",
					r.Date.MDY(), core.FormatHours(r.Hours),
					r.Contact.Name, r.Contact.Email, r.Contact.Phone, oneLine(r.Details))
			}
		}
		fmt.Fprintf(tw, "  TOTAL\t%sh\n", core.FormatHours(g.TotalHours()))
	}
	return tw.Flush()
}

func runYears(_ context.Context, a *app, _ []string) error {
	for _, label := range a.svc.YearLabels() {
		fmt.Fprintln(a.out, label)
	}
	return nil
}

func runSummary(_ context.Context, a *app, _ []string) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tDESCRIPTION\tRECORDS\tHOURS")
	for _, s := range a.svc.Summaries() {
		for _, d := range s.ByDescription {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Label, d.Description, d.Records, core.FormatHours(d.Hours))
		}
		fmt.Fprintf(tw, "%s\tTOTAL\t%d\t%s\n", s.Label, s.Records, core.FormatHours(s.TotalHours))
	}
	return tw.Flush()
}

func runCheck(_ context.Context, a *app, _ []string) error {
	records := a.svc.Records()
	var errs []error
	for _, r := range records {
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s on %s: %w", r.Description, r.Date.MDY(), err))
		}
	}
	if len(errs) > 0 {
		a.logger.Warn("Ledger has invalid records", log.FieldOperation, log.OpValidate, log.FieldRecords, len(errs))
		return errors.Join(errs...)
	}
	sum, err := a.svc.Checksum()
	if err != nil {
		return err
	}
	a.logger.Debug("Ledger checked", log.FieldOperation, log.OpValidate, log.FieldChecksum, sum)
	fmt.Fprintf(a.out, "%s: %d records in %d years, checksum %s\n",
		a.svc.Path(), len(records), len(a.svc.YearLabels()), sum)
	return nil
}

func runMirror(ctx context.Context, a *app, _ []string) error {
	if a.repo == nil {
		return errors.New("mirror disabled, set MIRROR_ENABLED=true")
	}
	snap, err := a.svc.Mirror(ctx)
	if err != nil {
		return err
	}
	totals, err := a.repo.YearTotals(ctx, snap.Source)
	if err != nil {
		return err
	}
	printTotals(a, snap, totals)
	return verifyMirror(ctx, a, snap)
}

// verifyMirror rebuilds the index from the mirrored rows and compares its
// checksum with the snapshot's.
func verifyMirror(ctx context.Context, a *app, snap storage.Snapshot) error {
	idx, err := a.repo.LoadIndex(ctx, snap.Source)
	if err != nil {
		return err
	}
	sum, err := ledger.NewCodec(ledger.Options{Logger: a.logger}).Checksum(idx)
	if err != nil {
		return err
	}
	if sum != snap.Checksum {
		return fmt.Errorf("mirror does not match the ledger: checksum %s, want %s", sum, snap.Checksum)
	}
	fmt.Fprintln(a.out, "verified")
	return nil
}

func printTotals(a *app, snap storage.Snapshot, totals []storage.YearTotal) {
	fmt.Fprintf(a.out, "snapshot %d: %d records, checksum %s\n", snap.ID, snap.Records, snap.Checksum)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%d\t%sh\n", core.AcademicYearLabel(t.AcademicYear), t.Records, core.FormatHours(t.Hours))
	}
	tw.Flush()
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "export")
	year := fs.Int("year", 0, "only this academic year")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var years []int
	if *year != 0 {
		years = []int{*year}
	} else {
		for _, s := range a.svc.Summaries() {
			years = append(years, s.AcademicYear)
		}
	}
	for _, y := range years {
		ref, err := a.svc.Export(ctx, y)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s -> %s\n", core.AcademicYearLabel(y), ref)
	}
	return nil
}

func runReport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "report")
	year := fs.Int("year", 0, "academic year start")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *year == 0 {
		return errors.New("-year is required")
	}

	r, err := a.svc.Report(ctx, *year)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", r.Label)
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "  %s\t%s\t%sh\t%s\t%s\n", row[0], row[1], row[2], row[3], oneLine(row[6]))
	}
	fmt.Fprintf(tw, "  %s\t\t%sh\n", sheets.TotalLabel, core.FormatHours(r.TotalHours))
	return tw.Flush()
}
