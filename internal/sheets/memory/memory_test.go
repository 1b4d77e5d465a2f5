package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cltracker/internal/core"
	ports "cltracker/internal/sheets"
)

func report(year int, hours float64) ports.Report {
	g := core.NewYearGroup(year)
	g.AddRecord(core.Activity{
		Description:  "Library",
		Date:         core.NewDate(year, 3, 1),
		AcademicYear: year,
		Hours:        hours,
		Details:      "line one\nline two",
	})
	return ports.BuildReport(g)
}

func TestMemoryStoreWriteAndRead(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.WriteReport(ctx, report(2021, 2))
	if err != nil || ref != "mem:2021-22" {
		t.Fatalf("unexpected write: ref=%q err=%v", ref, err)
	}
	if _, err := s.WriteReport(ctx, report(2021, 3)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteReport(ctx, report(2019, 1)); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadReport(ctx, 2021)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalHours != 3 {
		t.Errorf("rewrite should replace the report, total = %v", got.TotalHours)
	}
	if years := s.Years(); len(years) != 2 || years[0] != 2019 || years[1] != 2021 {
		t.Errorf("Years() = %v", years)
	}
}

func TestMemoryStoreReadMissing(t *testing.T) {
	_, err := New().ReadReport(context.Background(), 1999)
	if !errors.Is(err, ports.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestMemoryStoreWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	s := NewWithDir(dir)

	ref, err := s.WriteReport(context.Background(), report(2022, 1.5))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "2022-23.csv"); ref != want {
		t.Fatalf("ref = %q, want %q", ref, want)
	}

	f, err := os.Open(ref)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header, one record and total, got %d rows", len(rows))
	}
	if rows[1][6] != "line one\nline two" {
		t.Errorf("details should survive CSV quoting, got %q", rows[1][6])
	}
	if rows[2][0] != ports.TotalLabel || rows[2][2] != "1.5" {
		t.Errorf("unexpected total row %v", rows[2])
	}
}

func TestMemoryStoreReadsCSVWrittenEarlier(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	want := report(2022, 1.5)
	if _, err := NewWithDir(dir).WriteReport(ctx, want); err != nil {
		t.Fatal(err)
	}

	// A fresh store has nothing in memory and reads the file.
	got, err := NewWithDir(dir).ReadReport(ctx, 2022)
	if err != nil {
		t.Fatal(err)
	}
	if got.Label != "2022-23" || got.AcademicYear != 2022 || got.TotalHours != 1.5 {
		t.Errorf("unexpected report %+v", got)
	}
	if len(got.Rows) != 1 || got.Rows[0][6] != "line one\nline two" {
		t.Errorf("rows = %q", got.Rows)
	}

	if _, err := NewWithDir(dir).ReadReport(ctx, 1999); !errors.Is(err, ports.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}
