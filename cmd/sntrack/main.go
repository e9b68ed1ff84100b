package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"gorm.io/gorm"

	"sntrack/config"
	"sntrack/internal/analyzer"
	"sntrack/internal/api"
	"sntrack/internal/db"
	"sntrack/internal/logging"
	"sntrack/internal/model"
	"sntrack/internal/power"
	"sntrack/internal/recorder"
	"sntrack/internal/report"
	"sntrack/internal/store"
)

const version = "0.1"

// Exit codes.
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

const usage = `sntrack tracks the battery discharge rate during sleep.

Usage:
  sntrack [-config PATH] [-v] <command> [arguments]

Commands:
  pre <action>    record a sample as the system enters sleep
  post <action>   record a sample as the system leaves sleep
  plot [flags]    print the discharge rate series for plotting
  serve           serve the series over HTTP
  version         print the version
  help            show this help

Sleep actions: suspend, hibernate, hybrid-sleep, suspend-then-hibernate
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries what every command needs once configuration is resolved.
type app struct {
	cfg     *config.Config
	logger  logging.Logger
	verbose bool
	stdout  io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sntrack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	configPath := fs.String("config", defaultConfigPath(), "path to the YAML configuration")
	verbose := fs.Bool("v", false, "increase output verbosity")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cmd, rest := fs.Arg(0), fs.Args()
	if len(rest) > 0 {
		rest = rest[1:]
	}
	switch cmd {
	case "", "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	case "version":
		fmt.Fprintf(stdout, "sntrack %s\n", version)
		return exitOK
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration from %s: %v\n", *configPath, err)
		return exitFatal
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	logger := logging.New(cfg.Logging, stderr)
	defer logger.Sync()

	a := &app{cfg: cfg, logger: logger, verbose: *verbose, stdout: stdout}
	ctx := context.Background()

	switch cmd {
	case "pre", "post":
		err = a.record(ctx, cmd, rest)
	case "plot":
		err = a.plot(ctx, rest, stderr)
	case "serve":
		err = a.serve()
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return exitUsage
	}

	var uerr usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &uerr):
		fmt.Fprintln(stderr, err)
		return exitUsage
	default:
		logger.Errorf("%s: %v", cmd, err)
		return exitFatal
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func defaultConfigPath() string {
	if p := os.Getenv("SNTRACK_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath
}

// openStore opens the database for the duration of one command.
func (a *app) openStore() (store.Store, *gorm.DB, error) {
	gormDB, err := db.Open(&a.cfg.Database, a.verbose)
	if err != nil {
		return nil, nil, err
	}
	return store.NewGormStore(gormDB), gormDB, nil
}

func (a *app) powerReader() *power.SysfsReader {
	rc := a.cfg.Recorder
	return power.NewSysfsReader(rc.PowerSupplyDir, rc.MemSleepPath, rc.DmidecodePath)
}

func (a *app) analyzerOptions() (analyzer.Options, error) {
	policy, err := analyzer.ParsePolicy(a.cfg.Analyzer.PairingPolicy)
	if err != nil {
		return analyzer.Options{}, err
	}
	return analyzer.Options{
		MinDuration:           a.cfg.Analyzer.MinDuration,
		Policy:                policy,
		ExcludeNonDischarging: a.cfg.Analyzer.ExcludeNonDischarging,
	}, nil
}

func (a *app) record(ctx context.Context, phase string, args []string) error {
	if len(args) != 1 || !slices.Contains(recorder.SleepActions, args[0]) {
		return usageError(fmt.Sprintf("usage: sntrack %s {suspend|hibernate|hybrid-sleep|suspend-then-hibernate}", phase))
	}
	kind, err := model.ParseEventKind(phase)
	if err != nil {
		return err
	}

	s, gormDB, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	rec := recorder.New(s, a.powerReader(), a.logger, recorder.Options{
		SkipOnAC: a.cfg.Recorder.SkipOnAC,
		LockPath: db.LockPath(a.cfg.Database.Driver, a.cfg.Database.DSN),
		Lock:     db.Lock,
	})
	err = rec.Record(ctx, kind, args[0])
	if errors.Is(err, recorder.ErrSkipped) {
		a.logger.Infof("nothing recorded: %v", err)
		return nil
	}
	return err
}

func (a *app) plot(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	short := fs.Bool("short", false, fmt.Sprintf("include short sleep sessions < %d s", a.cfg.Analyzer.MinDurationSeconds))
	bios := fs.String("bios", "", `filter by BIOS version, e.g. "R1BET66W(1.35 )"`)
	mode := fs.String("mode", "", "filter by sleep mode: deep, s2idle")
	action := fs.String("action", "", "filter by sleep action")
	format := fs.String("format", report.FormatTable, "output format: table, csv, json")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return usageError(err.Error())
	}

	opts, err := a.analyzerOptions()
	if err != nil {
		return err
	}
	if *short {
		opts.MinDuration = 0
	}

	s, gormDB, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	svc := report.NewService(s, a.powerReader(), a.logger, opts)
	r, err := svc.Build(ctx, analyzer.Criteria{Action: *action, Mode: *mode, BiosVersion: *bios}, nil)
	if errors.Is(err, report.ErrNoData) {
		fmt.Fprintln(a.stdout, "no data")
		return nil
	}
	if err != nil {
		return err
	}
	return report.Write(a.stdout, r, *format)
}

func (a *app) serve() error {
	opts, err := a.analyzerOptions()
	if err != nil {
		return err
	}

	s, gormDB, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	svc := report.NewService(s, a.powerReader(), a.logger, opts)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler: api.NewRouter(svc, a.cfg.Server),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server starting on port %d", a.cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
		return nil
	case <-stop:
	}
	a.logger.Infof("shutdown signal received, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}
	return nil
}
