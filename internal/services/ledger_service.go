package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"cltracker/internal/amqp"
	"cltracker/internal/core"
	"cltracker/internal/ledger"
	"cltracker/internal/log"
	"cltracker/internal/sheets"
	"cltracker/internal/storage"
)

var (
	ErrNoLedgerPath = errors.New("no ledger file open")
	ErrNoReports    = errors.New("no report backend configured")
	ErrNoMirror     = errors.New("no mirror configured")
	ErrUnknownYear  = errors.New("unknown academic year")
)

// Mirror receives a copy of the ledger after every save.
type Mirror interface {
	ReplaceIndex(ctx context.Context, source, checksum string, idx *core.YearIndex) (storage.Snapshot, error)
}

// Publisher announces saved ledgers.
type Publisher interface {
	PublishLedgerSaved(ctx context.Context, msg *amqp.LedgerSavedMessage) error
}

// Options wires the optional collaborators of a LedgerService. Nil fields
// disable the matching feature.
type Options struct {
	Codec     ledger.Options
	Mirror    Mirror
	Publisher Publisher
	Reports   sheets.ReportWriter
	Logger    *log.Logger
}

// LedgerService owns one open ledger document: its index, its edit history
// and the file it came from. The ledger file is the source of truth; the
// mirror, the notification and the reports are derived from it after each
// successful save.
type LedgerService struct {
	mu      sync.Mutex
	path    string
	index   *core.YearIndex
	history *core.History

	codec     *ledger.Codec
	mirror    Mirror
	publisher Publisher
	reports   sheets.ReportWriter
	logger    *log.Logger
}

func NewLedgerService(opts Options) *LedgerService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	codecOpts := opts.Codec
	if codecOpts.Logger == nil {
		codecOpts.Logger = logger
	}
	return &LedgerService{
		index:     core.NewYearIndex(),
		history:   core.NewHistory(),
		codec:     ledger.NewCodec(codecOpts),
		mirror:    opts.Mirror,
		publisher: opts.Publisher,
		reports:   opts.Reports,
		logger:    logger.WithComponent(log.ComponentService),
	}
}

// Open loads path as the current document. The path is kept in absolute form. A missing file opens an empty
// ledger that will be created on the first save. On any other failure the
// current document is left untouched.
func (s *LedgerService) Open(path string) error {
	path = ledger.CanonicalPath(path)
	idx, err := s.codec.LoadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		idx = core.NewYearIndex()
		s.logger.Info("Ledger file not found, starting empty", log.FieldPath, path)
	case err != nil:
		s.logger.Error("Failed to open ledger",
			log.NewFields().WithOperation(log.OpLoad).WithPath(path).WithError(err).ToSlice()...)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.index = idx
	s.history = core.NewHistory()

	s.logger.Info("Ledger opened",
		log.NewFields().WithOperation(log.OpLoad).WithPath(path).WithIndex(idx).ToSlice()...)
	return nil
}

// Path returns the file of the current document.
func (s *LedgerService) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Add files a new record.
func (s *LedgerService) Add(a core.Activity) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("add activity: %w", err)
	}
	return s.apply(log.OpAdd, core.Addition(a))
}

// Remove deletes one record equal to a.
func (s *LedgerService) Remove(a core.Activity) error {
	return s.apply(log.OpRemove, core.Deletion(a))
}

// Edit replaces old with updated, moving it to another year if needed.
func (s *LedgerService) Edit(old, updated core.Activity) error {
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("edit activity: %w", err)
	}
	return s.apply(log.OpEdit, core.Edit(old, updated))
}

func (s *LedgerService) apply(op string, act core.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.history.Apply(s.index, act); err != nil {
		return err
	}
	rec := act.Current
	if act.Kind == core.Deleted {
		rec = act.Previous
	}
	s.logger.Debug("Ledger changed",
		log.NewFields().WithOperation(op).WithActivity(rec).ToSlice()...)
	return nil
}

// Undo reverts the most recent change.
func (s *LedgerService) Undo() (core.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	act, err := s.history.Undo(s.index)
	if err != nil {
		return core.Action{}, err
	}
	s.logger.Debug("Change undone", log.FieldOperation, log.OpUndo, "action", act.Kind.String())
	return act, nil
}

// Redo reapplies the most recently undone change.
func (s *LedgerService) Redo() (core.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	act, err := s.history.Redo(s.index)
	if err != nil {
		return core.Action{}, err
	}
	s.logger.Debug("Change redone", log.FieldOperation, log.OpRedo, "action", act.Kind.String())
	return act, nil
}

// Lookup returns the group for an academic year. The group belongs to the
// service; change it only through Add, Remove and Edit.
func (s *LedgerService) Lookup(year int) (*core.YearGroup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Lookup(year)
}

// Adjacent returns the year group step positions from year, for
// previous/next navigation.
func (s *LedgerService) Adjacent(year, step int) (*core.YearGroup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Adjacent(year, step)
}

func (s *LedgerService) YearLabels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.YearLabels()
}

func (s *LedgerService) Summaries() []core.YearSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Summaries()
}

// Records returns every record, group by group.
func (s *LedgerService) Records() []core.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Records()
}

// Dirty reports unsaved changes.
func (s *LedgerService) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Dirty()
}

// Checksum returns the checksum of the document as it would be saved.
func (s *LedgerService) Checksum() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codec.Checksum(s.index)
}

// Save writes the document to its file. Mirroring and publishing follow a
// successful write; their failures are logged and do not fail the save.
func (s *LedgerService) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return ErrNoLedgerPath
	}
	start := time.Now()
	if err := s.codec.SaveFile(s.path, s.index); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save ledger",
			log.NewFields().WithOperation(log.OpSave).WithPath(s.path).WithError(err).ToSlice()...)
		return err
	}
	s.history.MarkSaved()

	checksum, err := s.codec.Checksum(s.index)
	if err != nil {
		// The file was just written from the same index.
		return fmt.Errorf("checksum ledger: %w", err)
	}

	s.logger.InfoContext(ctx, "Ledger saved",
		log.NewFields().WithOperation(log.OpSave).WithPath(s.path).WithIndex(s.index).
			WithDuration(time.Since(start)).ToSlice()...)

	if s.mirror != nil {
		if _, err := s.mirror.ReplaceIndex(ctx, s.path, checksum, s.index); err != nil {
			s.logger.WarnContext(ctx, "Failed to mirror ledger",
				log.NewFields().WithOperation(log.OpMirror).WithPath(s.path).WithError(err).ToSlice()...)
		}
	}

	if s.publisher != nil {
		msg := amqp.NewLedgerSavedMessage(s.path, checksum, s.index.Size(), s.index.Len())
		if err := s.publisher.PublishLedgerSaved(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish ledger saved message",
				log.NewFields().WithOperation(log.OpPublish).WithPath(s.path).WithError(err).ToSlice()...)
		}
	}

	return nil
}

// SaveAs makes path the document's file and saves to it.
func (s *LedgerService) SaveAs(ctx context.Context, path string) error {
	s.mu.Lock()
	prev := s.path
	s.path = ledger.CanonicalPath(path)
	s.mu.Unlock()

	if err := s.Save(ctx); err != nil {
		s.mu.Lock()
		s.path = prev
		s.mu.Unlock()
		return err
	}
	return nil
}

// Mirror copies the current document into the mirror without saving it.
func (s *LedgerService) Mirror(ctx context.Context) (storage.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mirror == nil {
		return storage.Snapshot{}, ErrNoMirror
	}
	if s.path == "" {
		return storage.Snapshot{}, ErrNoLedgerPath
	}
	checksum, err := s.codec.Checksum(s.index)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("checksum ledger: %w", err)
	}
	return s.mirror.ReplaceIndex(ctx, s.path, checksum, s.index)
}

// Export writes the report of one academic year and returns the backend's
// reference to it.
func (s *LedgerService) Export(ctx context.Context, year int) (string, error) {
	if s.reports == nil {
		return "", ErrNoReports
	}

	s.mu.Lock()
	g, ok := s.index.Lookup(year)
	var r sheets.Report
	if ok {
		r = sheets.BuildReport(g)
	}
	s.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("%s: %w", core.AcademicYearLabel(year), ErrUnknownYear)
	}

	ref, err := s.reports.WriteReport(ctx, r)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to export report",
			log.NewFields().WithOperation(log.OpExport).WithError(err).ToSlice()...)
		return "", fmt.Errorf("export %s: %w", r.Label, err)
	}
	s.logger.InfoContext(ctx, "Report exported",
		log.FieldOperation, log.OpExport,
		log.FieldYearLabel, r.Label,
		log.FieldReportRef, ref)
	return ref, nil
}

// Report reads back the last exported report of one academic year. The
// backend must also implement sheets.ReportReader.
func (s *LedgerService) Report(ctx context.Context, year int) (sheets.Report, error) {
	rd, ok := s.reports.(sheets.ReportReader)
	if !ok {
		return sheets.Report{}, ErrNoReports
	}
	return rd.ReadReport(ctx, year)
}
