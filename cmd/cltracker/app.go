package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"cltracker/internal/amqp"
	"cltracker/internal/backend"
	"cltracker/internal/config"
	"cltracker/internal/ledger"
	"cltracker/internal/log"
	"cltracker/internal/services"
	"cltracker/internal/storage"
)

type command struct {
	usage string
	// mutates commands save the ledger after a successful run
	mutates bool
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"add":     {usage: "add a record", mutates: true, run: runAdd},
	"remove":  {usage: "remove a record", mutates: true, run: runRemove},
	"edit":    {usage: "change fields of a record", mutates: true, run: runEdit},
	"list":    {usage: "list records, grouped by year and description", run: runList},
	"years":   {usage: "list academic years", run: runYears},
	"summary": {usage: "hours per year and description", run: runSummary},
	"check":   {usage: "parse the ledger and report its shape", run: runCheck},
	"mirror":  {usage: "copy the ledger into the SQLite mirror", run: runMirror},
	"export":  {usage: "export yearly reports", run: runExport},
	"report":  {usage: "show an exported report", run: runReport},
}

// app holds what a command needs: the open ledger and its collaborators.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	out    io.Writer
	svc    *services.LedgerService
	repo   *storage.SQLiteRepository

	closers []func() error
}

func usage(out io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(out, "usage: cltracker [-ledger path] <command> [flags]")
	fmt.Fprintln(out, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-8s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(out, "\nflags:")
	fs.SetOutput(out)
	fs.PrintDefaults()
}

func run(ctx context.Context, args []string, out io.Writer, cfg *config.Config, logger *log.Logger) error {
	fs := flag.NewFlagSet("cltracker", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	ledgerPath := fs.String("ledger", cfg.LedgerPath, "ledger file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(out, fs)
		}
		return err
	}
	cfg.LedgerPath = *ledgerPath

	if fs.NArg() == 0 {
		usage(out, fs)
		return flag.ErrHelp
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.svc.Open(cfg.LedgerPath); err != nil {
		return err
	}
	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if cmd.mutates && a.svc.Dirty() {
		return a.svc.Save(ctx)
	}
	return nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger, out io.Writer) (*app, error) {
	logger = logger.WithComponent(log.ComponentCLI)
	a := &app{cfg: cfg, logger: logger, out: out}

	opts := services.Options{
		Codec:  ledger.Options{ValidateOnSave: cfg.ValidateOnSave, Logger: logger},
		Logger: logger,
	}

	if cfg.MirrorEnabled {
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open mirror: %w", err)
		}
		a.repo = repo.WithLogger(logger)
		a.closers = append(a.closers, repo.Close)
		opts.Mirror = a.repo
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// Saving works without notifications; the worker's interval catches up.
			logger.WarnContext(ctx, "AMQP unavailable, saves will not be announced", log.FieldError, err)
		} else {
			a.closers = append(a.closers, client.Close)
			opts.Publisher = client
		}
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, res.Cleanup)
	opts.Reports = res.Backend

	a.svc = services.NewLedgerService(opts)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}
	a.closers = nil
}

// newFlagSet returns a subcommand flag set that reports errors instead of
// exiting.
func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " / ")
}
