package log

import (
	"time"

	"cltracker/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldPath         = "path"
	FieldLine         = "line"
	FieldField        = "field"
	FieldAcademicYear = "academic_year"
	FieldYearLabel    = "year_label"
	FieldDescription  = "description"
	FieldDate         = "date"
	FieldHours        = "hours"
	FieldRecords      = "records"
	FieldYears        = "years"
	FieldChecksum     = "checksum"
	FieldReportRef    = "report_ref"
	FieldDuration     = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentLedger  = "ledger"
	ComponentService = "service"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpLoad     = "load"
	OpSave     = "save"
	OpAdd      = "add"
	OpRemove   = "remove"
	OpEdit     = "edit"
	OpUndo     = "undo"
	OpRedo     = "redo"
	OpMirror   = "mirror"
	OpPublish  = "publish"
	OpExport   = "export"
	OpValidate = "validate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithPath(path string) LogFields {
	f[FieldPath] = path
	return f
}

// WithActivity adds the identifying fields of an activity. Details and
// contact data are left out of logs.
func (f LogFields) WithActivity(a core.Activity) LogFields {
	f[FieldDescription] = a.Description
	f[FieldDate] = a.Date.MDY()
	f[FieldAcademicYear] = a.AcademicYear
	f[FieldHours] = a.Hours
	return f
}

// WithIndex adds the shape of a year index.
func (f LogFields) WithIndex(x *core.YearIndex) LogFields {
	f[FieldYears] = x.Len()
	f[FieldRecords] = x.Size()
	return f
}

func (f LogFields) WithDuration(d time.Duration) LogFields {
	f[FieldDuration] = d.Milliseconds()
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
