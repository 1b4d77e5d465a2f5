package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cltracker/internal/amqp"
	"cltracker/internal/core"
	"cltracker/internal/ledger"
	"cltracker/internal/log"
	"cltracker/internal/sheets"
	"cltracker/internal/storage"
)

const defaultExportConcurrency = 4

// SnapshotStore is the part of the SQLite mirror the worker needs.
type SnapshotStore interface {
	ReplaceIndex(ctx context.Context, source, checksum string, idx *core.YearIndex) (storage.Snapshot, error)
	LastSnapshot(ctx context.Context, source string) (storage.Snapshot, error)
}

// Result describes one reconcile pass.
type Result struct {
	Changed  bool
	Snapshot storage.Snapshot
	Exported int
}

// ReconcileWorker keeps the mirror and the reports in step with one ledger
// file. It only ever reads the ledger, so the editing process stays its
// single writer.
type ReconcileWorker struct {
	path    string
	codec   *ledger.Codec
	store   SnapshotStore
	reports sheets.ReportWriter
	logger  *log.Logger

	exportConcurrency int

	// serializes passes triggered by messages and by the ticker
	mu sync.Mutex
	// set when the mirror is current but the last export failed
	exportPending bool
}

func NewReconcileWorker(path string, store SnapshotStore, reports sheets.ReportWriter, logger *log.Logger) *ReconcileWorker {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentWorker)
	return &ReconcileWorker{
		path:              ledger.CanonicalPath(path),
		codec:             ledger.NewCodec(ledger.Options{Logger: logger}),
		store:             store,
		reports:           reports,
		logger:            logger,
		exportConcurrency: defaultExportConcurrency,
	}
}

// HandleLedgerSaved reconciles after a save notification. Notifications for
// other ledger files are ignored. A ledger that does not parse is logged and
// the message acknowledged: redelivery cannot fix the file, and the interval
// pass picks it up once it is repaired.
func (w *ReconcileWorker) HandleLedgerSaved(ctx context.Context, msg *amqp.LedgerSavedMessage) error {
	if ledger.CanonicalPath(msg.Path) != w.path {
		w.logger.DebugContext(ctx, "Ignoring notification for another ledger",
			log.FieldPath, msg.Path, "watched", w.path)
		return nil
	}
	w.logger.InfoContext(ctx, "Processing ledger saved message",
		log.FieldPath, msg.Path,
		log.FieldChecksum, msg.Checksum,
		log.FieldRecords, msg.Records)

	_, err := w.Reconcile(ctx)
	var perr *ledger.ParseError
	if errors.As(err, &perr) {
		w.logger.ErrorContext(ctx, "Ledger does not parse, waiting for a fix",
			log.NewFields().WithPath(w.path).WithError(err).ToSlice()...)
		return nil
	}
	return err
}

// Reconcile reads the ledger and, when its content differs from the last
// mirrored snapshot, refreshes the mirror and re-exports every year.
// A missing ledger file is not an error; there is nothing to reconcile yet.
func (w *ReconcileWorker) Reconcile(ctx context.Context) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx, err := w.codec.LoadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		w.logger.DebugContext(ctx, "Ledger file not found, nothing to reconcile", log.FieldPath, w.path)
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load ledger: %w", err)
	}

	checksum, err := w.codec.Checksum(idx)
	if err != nil {
		return Result{}, fmt.Errorf("checksum ledger: %w", err)
	}

	last, err := w.store.LastSnapshot(ctx, w.path)
	switch {
	case err == nil && last.Checksum == checksum:
		if !w.exportPending {
			w.logger.DebugContext(ctx, "Mirror up to date", log.FieldChecksum, checksum)
			return Result{Snapshot: last}, nil
		}
		exported, err := w.exportAll(ctx, idx)
		return Result{Snapshot: last, Exported: exported}, err
	case err != nil && !errors.Is(err, storage.ErrNoSnapshot):
		return Result{}, fmt.Errorf("read last snapshot: %w", err)
	}

	snap, err := w.store.ReplaceIndex(ctx, w.path, checksum, idx)
	if err != nil {
		return Result{}, fmt.Errorf("mirror ledger: %w", err)
	}

	exported, err := w.exportAll(ctx, idx)
	res := Result{Changed: true, Snapshot: snap, Exported: exported}
	if err != nil {
		return res, err
	}

	w.logger.InfoContext(ctx, "Ledger reconciled",
		log.NewFields().WithOperation(log.OpMirror).WithPath(w.path).WithIndex(idx).ToSlice()...)
	return res, nil
}

func (w *ReconcileWorker) exportAll(ctx context.Context, idx *core.YearIndex) (int, error) {
	if w.reports == nil {
		return 0, nil
	}
	groups := idx.Groups()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.exportConcurrency)
	for _, yg := range groups {
		r := sheets.BuildReport(yg)
		g.Go(func() error {
			ref, err := w.reports.WriteReport(gctx, r)
			if err != nil {
				return fmt.Errorf("export %s: %w", r.Label, err)
			}
			w.logger.DebugContext(gctx, "Report exported",
				log.FieldYearLabel, r.Label,
				log.FieldReportRef, ref)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.exportPending = true
		return 0, err
	}
	w.exportPending = false
	return len(groups), nil
}

// Run reconciles once, then every interval until ctx is done. Failed passes
// are logged and retried on the next tick.
func (w *ReconcileWorker) Run(ctx context.Context, interval time.Duration) error {
	w.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ReconcileWorker) runOnce(ctx context.Context) {
	start := time.Now()
	res, err := w.Reconcile(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Reconcile failed",
				log.NewFields().WithPath(w.path).WithError(err).ToSlice()...)
		}
		return
	}
	if res.Changed {
		w.logger.InfoContext(ctx, "Reconcile pass completed",
			log.NewFields().WithPath(w.path).WithDuration(time.Since(start)).ToSlice()...)
	}
}
