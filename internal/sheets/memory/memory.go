package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"cltracker/internal/core"
	ports "cltracker/internal/sheets"
)

// Store keeps exported reports in memory. When built with a directory it
// also writes each report there as CSV, one file per academic year.
type Store struct {
	mu      sync.Mutex
	dir     string
	reports map[int]ports.Report
}

var (
	_ ports.ReportWriter = (*Store)(nil)
	_ ports.ReportReader = (*Store)(nil)
)

func New() *Store {
	return &Store{reports: make(map[int]ports.Report)}
}

// NewWithDir returns a store that mirrors reports as CSV files under dir.
func NewWithDir(dir string) *Store {
	s := New()
	s.dir = dir
	return s
}

// WriteReport stores r, replacing any earlier report for the same year.
func (s *Store) WriteReport(_ context.Context, r ports.Report) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := fmt.Sprintf("mem:%s", r.Label)
	if s.dir != "" {
		path, err := s.writeCSV(r)
		if err != nil {
			return "", err
		}
		ref = path
	}
	s.reports[r.AcademicYear] = r
	return ref, nil
}

func (s *Store) writeCSV(r ports.Report) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(s.dir, r.Label+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(r.Values()); err != nil {
		f.Close()
		return "", fmt.Errorf("write report %s: %w", r.Label, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report file: %w", err)
	}
	return path, nil
}

// ReadReport returns the last report written for academicYear. A store with
// a directory falls back to the CSV copy, so reports outlive the process.
func (s *Store) ReadReport(_ context.Context, academicYear int) (ports.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reports[academicYear]; ok {
		return r, nil
	}
	if s.dir == "" {
		return ports.Report{}, fmt.Errorf("year %d: %w", academicYear, ports.ErrReportNotFound)
	}
	return s.readCSV(academicYear)
}

func (s *Store) readCSV(academicYear int) (ports.Report, error) {
	label := core.AcademicYearLabel(academicYear)
	path := filepath.Join(s.dir, label+".csv")
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return ports.Report{}, fmt.Errorf("%s: %w", label, ports.ErrReportNotFound)
	}
	if err != nil {
		return ports.Report{}, fmt.Errorf("open report file: %w", err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	values, err := rd.ReadAll()
	if err != nil {
		return ports.Report{}, fmt.Errorf("read report %s: %w", label, err)
	}
	r, err := ports.ParseValues(values)
	if err != nil {
		return ports.Report{}, fmt.Errorf("parse report %s: %w", label, err)
	}
	r.AcademicYear = academicYear
	r.Label = label
	return r, nil
}

// Years lists the academic years that have a report, ascending.
func (s *Store) Years() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.reports))
	for y := range s.reports {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}
