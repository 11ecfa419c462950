package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"pocket-survival/internal/backend"
	"pocket-survival/internal/budget"
	"pocket-survival/internal/config"
	"pocket-survival/internal/log"
	"pocket-survival/internal/services"

	"github.com/spf13/cobra"
)

// app carries the global flags and the opened ledger for one invocation.
type app struct {
	in io.Reader

	flagBackend string
	flagDB      string
	flagCSV     string
	flagVerbose bool

	cfg     config.Config
	res     *backend.Result
	tracker *services.Tracker
}

func newRootCmd(in io.Reader) *cobra.Command {
	a := &app{in: in}

	root := &cobra.Command{
		Use:           "hp",
		Short:         "Survive the month on your budget",
		Long:          "Pocket Survival tracks spending as damage against a monthly HP bar.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStatus(cmd)
		},
	}
	root.SetIn(in)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flagBackend, "backend", "b", "", "Storage backend (sqlite, file, memory, sheets)")
	pf.StringVar(&a.flagDB, "db", "", "SQLite ledger path")
	pf.StringVar(&a.flagCSV, "csv", "", "CSV ledger path for the file backend")
	pf.BoolVarP(&a.flagVerbose, "verbose", "v", false, "Log backend activity to stderr")

	root.AddCommand(
		a.statusCmd(),
		a.spendCmd(),
		a.logCmd(),
		a.resetCmd(),
		a.budgetCmd(),
		a.exportCmd(),
		a.setupCmd(),
	)
	return root
}

// open loads the configuration and the ledger. Callers must defer close.
func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.flagBackend != "" {
		cfg.DataBackend = a.flagBackend
	}
	if a.flagDB != "" {
		cfg.DBPath = a.flagDB
	}
	if a.flagCSV != "" {
		cfg.CSVPath = a.flagCSV
	}
	// The terminal is always single-user.
	cfg.MultiUser = false
	if err := cfg.Validate(); err != nil {
		return err
	}
	ceiling, err := cfg.Ceiling()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if a.flagVerbose {
		level = slog.LevelDebug
	}
	log.Setup(log.Config{Level: level, Output: os.Stderr})

	res, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.res = res
	a.tracker = services.NewTracker(res.Expenses, budget.NewHolder(res.Profiles, ceiling), services.WithLocation(loc))
	return nil
}

func (a *app) close() {
	if a.res == nil {
		return
	}
	if err := a.res.Close(); err != nil {
		log.Component(log.ComponentBackend).Warn("failed to close backend", log.FieldError, err)
	}
	a.res = nil
}

// withLedger opens the ledger around fn.
func (a *app) withLedger(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd.Context()); err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args)
	}
}

// profilesPersist reports whether budget changes survive this process.
func (a *app) profilesPersist() bool {
	return a.res != nil && a.res.Name == config.BackendSQLite
}

func (a *app) printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
