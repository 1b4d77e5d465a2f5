package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cltracker/internal/config"
	"cltracker/internal/core"
	"cltracker/internal/ledger"
	"cltracker/internal/log"
	"cltracker/internal/sheets"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		LedgerPath:        filepath.Join(dir, "activities.cl"),
		ValidateOnSave:    true,
		LogLevel:          "info",
		SQLiteDBPath:      filepath.Join(dir, "mirror.db"),
		ReportBackend:     "memory",
		ReportDir:         filepath.Join(dir, "reports"),
		ReconcileInterval: time.Minute,
	}
}

func runCLI(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, cfg, log.Discard())
	return out.String(), err
}

func mustRun(t *testing.T, cfg *config.Config, args ...string) string {
	t.Helper()
	out, err := runCLI(t, cfg, args...)
	require.NoError(t, err, "cltracker %s", strings.Join(args, " "))
	return out
}

func addLibrary(t *testing.T, cfg *config.Config) {
	t.Helper()
	mustRun(t, cfg, "add",
		"-desc", "Library", "-date", "3/15/2021", "-year", "2021",
		"-contact-name", "Ms. Smith", "-contact-email", "smith@school.edu", "-contact-phone", "555-0100",
		"-hours", "2,5", "-details", `Shelved books\nSecond line`)
}

func TestAddWritesLedger(t *testing.T) {
	cfg := testConfig(t)
	addLibrary(t, cfg)

	data, err := os.ReadFile(cfg.LedgerPath)
	require.NoError(t, err)
	assert.Equal(t, `~Activity~
desc=Library
date=3/15/2021
year=2021
contactname=Ms. Smith
contactemail=smith@school.edu
contactphone=555-0100
hours=2.5
~~Details~~
Shelved books
Second line
~~/Details~~
~/Activity~
`, string(data))
}

func TestAddRequiresFields(t *testing.T) {
	cfg := testConfig(t)
	_, err := runCLI(t, cfg, "add", "-desc", "Library", "-date", "3/15/2021", "-year", "2021")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-hours is required")

	_, err = runCLI(t, cfg, "add", "-desc", "Library", "-date", "2/30/2021", "-year", "2021", "-hours", "1")
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, err = os.Stat(cfg.LedgerPath)
	assert.True(t, os.IsNotExist(err), "failed commands must not create the ledger")
}

func TestListYearsSummary(t *testing.T) {
	cfg := testConfig(t)
	addLibrary(t, cfg)
	mustRun(t, cfg, "add", "-desc", "Choir", "-date", "12/24/2021", "-year", "2021", "-hours", "1")
	mustRun(t, cfg, "add", "-desc", "Food bank", "-date", "11/4/2023", "-year", "2023", "-hours", "4")

	out := mustRun(t, cfg, "list", "-year", "2021")
	assert.Contains(t, out, "2021-22\n")
	assert.Less(t, strings.Index(out, "Choir"), strings.Index(out, "Library"), "descriptions are sorted")
	assert.Contains(t, out, "Shelved books / Second line")
	assert.Regexp(t, `TOTAL\s+3\.5h`, out)
	assert.NotContains(t, out, "Food bank")

	assert.Equal(t, "2021-22\n2023-24\n", mustRun(t, cfg, "years"))

	sum := mustRun(t, cfg, "summary")
	assert.Regexp(t, `2021-22\s+TOTAL\s+2\s+3\.5`, sum)
	assert.Regexp(t, `2023-24\s+Food bank\s+1\s+4`, sum)
}

func TestEditMovesRecord(t *testing.T) {
	cfg := testConfig(t)
	addLibrary(t, cfg)

	out := mustRun(t, cfg, "edit", "-year", "2021", "-desc", "Library", "-date", "3/15/2021",
		"-set-year", "2022", "-set-hours", "3")
	assert.Contains(t, out, "updated Library on 3/15/2021 in 2022-23")

	idx, err := ledger.NewCodec(ledger.DefaultOptions()).LoadFile(cfg.LedgerPath)
	require.NoError(t, err)
	g, ok := idx.Lookup(2022)
	require.True(t, ok)
	recs := g.RecordsFor("Library")
	require.Len(t, recs, 1)
	assert.Equal(t, 3.0, recs[0].Hours)
	assert.Equal(t, "Ms. Smith", recs[0].Contact.Name, "unset fields are kept")

	assert.Equal(t, "nothing to change\n", mustRun(t, cfg, "edit", "-year", "2022", "-desc", "Library", "-date", "3/15/2021"))
}

func TestRemove(t *testing.T) {
	cfg := testConfig(t)
	addLibrary(t, cfg)

	mustRun(t, cfg, "remove", "-year", "2021", "-desc", "Library", "-date", "3/15/2021")
	data, err := os.ReadFile(cfg.LedgerPath)
	require.NoError(t, err)
	assert.Empty(t, string(data))

	_, err = runCLI(t, cfg, "remove", "-year", "2021", "-desc", "Library", "-date", "3/15/2021")
	require.Error(t, err)

	_, err = runCLI(t, cfg, "remove", "-year", "2021")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select the record")
}

func TestCheck(t *testing.T) {
	cfg := testConfig(t)
	addLibrary(t, cfg)

	out := mustRun(t, cfg, "check")
	assert.Regexp(t, `1 records in 1 years, checksum [0-9a-f]{64}`, out)

	broken := []byte("~Activity~\ndesc=Library\n~Activity~\n")
	require.NoError(t, os.WriteFile(cfg.LedgerPath, broken, 0o644))
	_, err := runCLI(t, cfg, "check")
	var perr *ledger.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
	assert.ErrorIs(t, err, ledger.ErrInvalidSyntax)

	data, err := os.ReadFile(cfg.LedgerPath)
	require.NoError(t, err)
	assert.Equal(t, broken, data, "a failed load never rewrites the file")
}

func TestExport(t *testing.T) {
	cfg := testConfig(t)
	addLibrary(t, cfg)

	out := mustRun(t, cfg, "export")
	want := filepath.Join(cfg.ReportDir, "2021-22.csv")
	assert.Equal(t, "2021-22 -> "+want+"\n", out)
	_, err := os.Stat(want)
	assert.NoError(t, err)

	_, err = runCLI(t, cfg, "export", "-year", "1999")
	assert.Error(t, err)
}

func TestReportReadsBackExport(t *testing.T) {
	cfg := testConfig(t)
	addLibrary(t, cfg)

	_, err := runCLI(t, cfg, "report", "-year", "2021")
	assert.ErrorIs(t, err, sheets.ErrReportNotFound)

	mustRun(t, cfg, "export")
	out := mustRun(t, cfg, "report", "-year", "2021")
	assert.True(t, strings.HasPrefix(out, "2021-22\n"))
	assert.Regexp(t, `Library\s+3/15/2021\s+2\.5h\s+Ms\. Smith\s+Shelved books / Second line`, out)
	assert.Regexp(t, `TOTAL\s+2\.5h`, out)

	_, err = runCLI(t, cfg, "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-year is required")
}

func TestMirror(t *testing.T) {
	cfg := testConfig(t)
	addLibrary(t, cfg)

	_, err := runCLI(t, cfg, "mirror")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIRROR_ENABLED")

	cfg.MirrorEnabled = true
	out := mustRun(t, cfg, "mirror")
	assert.Contains(t, out, "1 records")
	assert.Regexp(t, `2021-22\s+1\s+2\.5h`, out)
	assert.True(t, strings.HasSuffix(out, "verified\n"), "the mirror reads back to the same ledger")

	// Saves mirror automatically once enabled.
	mustRun(t, cfg, "add", "-desc", "Choir", "-date", "12/24/2021", "-year", "2021", "-hours", "1")
	out = mustRun(t, cfg, "mirror")
	assert.Regexp(t, `2021-22\s+2\s+3\.5h`, out)
}

func TestUsageAndUnknownCommand(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCLI(t, cfg)
	assert.True(t, errors.Is(err, flag.ErrHelp))
	assert.Contains(t, out, "usage: cltracker")
	assert.Contains(t, out, "summary")

	_, err = runCLI(t, cfg, "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "frobnicate"`)
}

func TestLedgerFlagOverridesConfig(t *testing.T) {
	cfg := testConfig(t)
	other := filepath.Join(t.TempDir(), "other.cl")

	mustRun(t, cfg, "-ledger", other, "add", "-desc", "Choir", "-date", "1/2/2020", "-year", "2019", "-hours", "1")
	_, err := os.Stat(other)
	assert.NoError(t, err)
}
