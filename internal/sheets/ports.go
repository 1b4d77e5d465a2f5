package sheets

import (
	"context"
)

// Ports for outbound adapters.
type (
	// ReportWriter publishes a yearly activity report. Writing the same
	// year again replaces the previous report.
	ReportWriter interface {
		WriteReport(ctx context.Context, r Report) (ref string, err error)
	}

	// ReportReader returns a previously written report.
	ReportReader interface {
		ReadReport(ctx context.Context, academicYear int) (Report, error)
	}
)
