package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cltracker/internal/cache"
	"cltracker/internal/core"
	"cltracker/internal/log"
	ports "cltracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	sheetCacheSize = 32
	sheetCacheTTL  = 10 * time.Minute
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// Client exports yearly reports to a spreadsheet, one tab per academic
// year. Each export replaces the tab's contents.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	sheetIDs      *cache.LRUCache[int64]
	logger        *log.Logger
}

// Ensure interface conformance
var (
	_ ports.ReportWriter = (*Client)(nil)
	_ ports.ReportReader = (*Client)(nil)
	_ cache.Cleaner      = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account. Extra
// client options are appended after the credentials; passing one that
// supplies its own HTTP client makes credentials optional.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Activities"
	}

	svc, err := newSheetsService(ctx, cfg, logger, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     base,
		sheetIDs:      cache.NewLRUCache[int64](sheetCacheSize, sheetCacheTTL),
		logger:        logger,
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger, extra []goption.ClientOption) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)

	var opts []goption.ClientOption
	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		opts = append(opts, goption.WithCredentialsJSON([]byte(serviceAccountJSON)))
	case serviceAccountFile != "":
		credentialsJSON, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.DebugContext(ctx, "Read service account credentials", log.FieldPath, serviceAccountFile)
		opts = append(opts, goption.WithCredentialsJSON(credentialsJSON))
	case len(extra) == 0:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))
	opts = append(opts, extra...)

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// CleanExpired drops expired tab lookups so renamed or deleted tabs are
// looked up again.
func (c *Client) CleanExpired() int {
	return c.sheetIDs.CleanExpired()
}

// SheetTitle is the tab name used for an academic year label.
func (c *Client) SheetTitle(label string) string {
	return fmt.Sprintf("%s %s", c.sheetBase, label)
}

// WriteReport replaces the year's tab with r, creating the tab if needed.
func (c *Client) WriteReport(ctx context.Context, r ports.Report) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	title := c.SheetTitle(r.Label)

	if _, err := c.ensureSheet(ctx, title); err != nil {
		return "", err
	}

	full := reportRange(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, full, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		// The tab may have been deleted behind our back.
		c.sheetIDs.Delete(title)
		return "", fmt.Errorf("clear %s: %w", full, err)
	}

	vr := &gsheet.ValueRange{Values: toGrid(r.Values())}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", quoteTitle(title)), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write report to %s: %w", title, err)
	}

	c.logger.InfoContext(ctx, "Report exported to Google Sheets",
		log.FieldYearLabel, r.Label,
		log.FieldReportRef, resp.UpdatedRange,
		"rows", resp.UpdatedRows)

	return resp.UpdatedRange, nil
}

// ReadReport reads a previously exported year back.
func (c *Client) ReadReport(ctx context.Context, academicYear int) (ports.Report, error) {
	if c.svc == nil {
		return ports.Report{}, errors.New("sheets service not initialized")
	}
	label := core.AcademicYearLabel(academicYear)
	title := c.SheetTitle(label)

	id, err := c.findSheet(ctx, title)
	if err != nil {
		return ports.Report{}, err
	}
	if id < 0 {
		return ports.Report{}, fmt.Errorf("%s: %w", title, ports.ErrReportNotFound)
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, reportRange(title)).Context(ctx).Do()
	if err != nil {
		return ports.Report{}, fmt.Errorf("read %s: %w", title, err)
	}
	r, err := parseReport(resp.Values)
	if err != nil {
		return ports.Report{}, fmt.Errorf("parse %s: %w", title, err)
	}
	r.AcademicYear = academicYear
	r.Label = label
	return r, nil
}

// ensureSheet returns the tab's sheet ID, adding the tab when missing.
func (c *Client) ensureSheet(ctx context.Context, title string) (int64, error) {
	return c.sheetIDs.GetOrLoad(title, func() (int64, error) {
		id, err := c.findSheet(ctx, title)
		if err != nil {
			return 0, err
		}
		if id >= 0 {
			return id, nil
		}
		return c.addSheet(ctx, title)
	})
}

// findSheet returns the ID of the tab named title, or -1.
func (c *Client) findSheet(ctx context.Context, title string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}
	return -1, nil
}

func (c *Client) addSheet(ctx context.Context, title string) (int64, error) {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add sheet %s: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", title)
	}
	c.logger.InfoContext(ctx, "Created report sheet", "sheet", title)
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}
