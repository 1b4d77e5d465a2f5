package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cltracker/internal/core"
	"cltracker/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when a source has never been mirrored.
var ErrNoSnapshot = errors.New("no snapshot for source")

// Snapshot describes one mirror run of a ledger file.
type Snapshot struct {
	ID        int64
	Source    string
	Checksum  string
	Records   int
	Years     int
	CreatedAt time.Time
}

// YearTotal is the aggregate of one academic year in the mirror.
type YearTotal struct {
	AcademicYear int
	Records      int
	Hours        float64
}

// SQLiteRepository mirrors ledger contents into SQLite for aggregate
// queries. The ledger file stays the source of truth; every mirror run
// replaces the rows of its source.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: log.Discard(),
	}, nil
}

// WithLogger sets the logger used for mirror events.
func (r *SQLiteRepository) WithLogger(logger *log.Logger) *SQLiteRepository {
	if logger != nil {
		r.logger = logger.WithComponent(log.ComponentStorage)
	}
	return r
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceIndex stores every record of idx under source, replacing what was
// mirrored before, and records a snapshot. It runs in one transaction.
func (r *SQLiteRepository) ReplaceIndex(ctx context.Context, source, checksum string, idx *core.YearIndex) (Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE source = ?`, source); err != nil {
		return Snapshot{}, fmt.Errorf("clear activities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO activities (
		source, academic_year, description, day, month, year,
		contact_name, contact_email, contact_phone, hours, details
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	records := idx.Records()
	for _, a := range records {
		if _, err := stmt.ExecContext(ctx,
			source, a.AcademicYear, a.Description,
			a.Date.Day(), a.Date.Month(), a.Date.Year(),
			a.Contact.Name, a.Contact.Email, a.Contact.Phone,
			a.Hours, a.Details,
		); err != nil {
			return Snapshot{}, fmt.Errorf("insert activity %q: %w", a.Description, err)
		}
	}

	snap := Snapshot{
		Source:    source,
		Checksum:  checksum,
		Records:   len(records),
		Years:     idx.Len(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO ledger_snapshots (source, checksum, records, years, created_at)
		VALUES (?, ?, ?, ?, ?)`, source, checksum, snap.Records, snap.Years, snap.CreatedAt.Format(timestampLayout))
	if err != nil {
		return Snapshot{}, fmt.Errorf("record snapshot: %w", err)
	}
	if snap.ID, err = res.LastInsertId(); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("commit transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "Ledger mirrored to SQLite",
		log.FieldPath, source,
		log.FieldRecords, snap.Records,
		log.FieldYears, snap.Years,
		log.FieldChecksum, snap.Checksum,
		"snapshot_id", snap.ID)

	return snap, nil
}

// LoadIndex rebuilds an index from the rows mirrored under source. Year
// groups that had no records are not represented in the mirror.
func (r *SQLiteRepository) LoadIndex(ctx context.Context, source string) (*core.YearIndex, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT academic_year, description, day, month, year,
		contact_name, contact_email, contact_phone, hours, details
		FROM activities WHERE source = ? ORDER BY id`, source)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	idx := core.NewYearIndex()
	for rows.Next() {
		var (
			a                core.Activity
			day, month, year int
		)
		if err := rows.Scan(&a.AcademicYear, &a.Description, &day, &month, &year,
			&a.Contact.Name, &a.Contact.Email, &a.Contact.Phone, &a.Hours, &a.Details); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Date = core.NewDate(year, month, day)
		idx.AddData(a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return idx, nil
}

// YearTotals aggregates hours per academic year, ordered by year.
func (r *SQLiteRepository) YearTotals(ctx context.Context, source string) ([]YearTotal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT academic_year, COUNT(*), COALESCE(SUM(hours), 0)
		FROM activities WHERE source = ?
		GROUP BY academic_year ORDER BY academic_year`, source)
	if err != nil {
		return nil, fmt.Errorf("query year totals: %w", err)
	}
	defer rows.Close()

	var out []YearTotal
	for rows.Next() {
		var t YearTotal
		if err := rows.Scan(&t.AcademicYear, &t.Records, &t.Hours); err != nil {
			return nil, fmt.Errorf("scan year total: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate year totals: %w", err)
	}
	return out, nil
}

// LastSnapshot returns the most recent snapshot of source, or ErrNoSnapshot.
func (r *SQLiteRepository) LastSnapshot(ctx context.Context, source string) (Snapshot, error) {
	var (
		snap    Snapshot
		created string
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, source, checksum, records, years, created_at
		FROM ledger_snapshots WHERE source = ? ORDER BY id DESC LIMIT 1`, source).
		Scan(&snap.ID, &snap.Source, &snap.Checksum, &snap.Records, &snap.Years, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	if snap.CreatedAt, err = parseTimestamp(created); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %d: %w", snap.ID, err)
	}
	return snap, nil
}

const timestampLayout = "2006-01-02 15:04:05"

// The driver may hand TIMESTAMP columns back already converted, in which
// case database/sql formats them as RFC 3339.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", s)
}
