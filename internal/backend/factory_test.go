package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"cltracker/internal/config"
	"cltracker/internal/core"
	"cltracker/internal/sheets"
)

func TestBackendType(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sqlite").IsValid() {
		t.Error("sqlite is not a report backend")
	}
	if got := strings.Join(GetBackendTypeStrings(), ","); got != "memory,sheets" {
		t.Errorf("GetBackendTypeStrings() = %s", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{
		ReportBackend:         "sheets",
		GoogleSpreadsheetID:   "sid",
		GoogleReportSheetName: "Activities",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SheetsBackend || cfg.GoogleSheetName != "Activities" {
		t.Errorf("unexpected backend config %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{ReportBackend: "excel"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "unknown", cfg: Config{Type: "excel"}, wantErr: "invalid backend type"},
		{name: "sheets without ID", cfg: Config{Type: SheetsBackend, GoogleSheetName: "A", GoogleServiceAccountJSON: "{}"}, wantErr: "Spreadsheet ID"},
		{name: "sheets without name", cfg: Config{Type: SheetsBackend, GoogleSpreadsheetID: "x", GoogleServiceAccountJSON: "{}"}, wantErr: "Sheet name"},
		{name: "sheets without credentials", cfg: Config{Type: SheetsBackend, GoogleSpreadsheetID: "x", GoogleSheetName: "A"}, wantErr: "GoogleServiceAccountFile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, ReportDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	g := core.NewYearGroup(2021)
	g.AddRecord(core.Activity{Description: "Library", Date: core.NewDate(2021, 3, 1), AcademicYear: 2021, Hours: 1})
	ref, err := res.Backend.WriteReport(context.Background(), sheets.BuildReport(g))
	if err != nil {
		t.Fatal(err)
	}
	if ref != filepath.Join(dir, "2021-22.csv") {
		t.Errorf("ref = %q", ref)
	}
	if _, err := res.Backend.ReadReport(context.Background(), 2021); err != nil {
		t.Errorf("ReadReport() = %v", err)
	}
}

func TestCreateSheetsBackendRequiresCredentials(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:                     SheetsBackend,
		GoogleSpreadsheetID:      "sid",
		GoogleSheetName:          "Activities",
		GoogleServiceAccountFile: "/non/existent.json",
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}
