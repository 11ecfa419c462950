// Package backend builds the stores selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"

	"pocket-survival/internal/config"
	"pocket-survival/internal/filestore"
	"pocket-survival/internal/log"
	"pocket-survival/internal/memstore"
	"pocket-survival/internal/ports"
	"pocket-survival/internal/sheets"
	"pocket-survival/internal/storage"
)

// CleanupFunc releases whatever the backend holds open.
type CleanupFunc func() error

// Result bundles the stores of one backend. Accounts is nil for backends
// that cannot hold users.
type Result struct {
	Name     string
	Expenses ports.ExpenseStore
	Profiles ports.ProfileStore
	Accounts ports.AccountStore
	// Ping checks the backend is reachable. Nil means always healthy.
	Ping    func(context.Context) error
	Cleanup CleanupFunc
}

func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Open creates the backend named by cfg.DataBackend.
func Open(ctx context.Context, cfg config.Config) (*Result, error) {
	logger := log.Component(log.ComponentBackend)

	switch cfg.DataBackend {
	case config.BackendSQLite:
		db, err := storage.NewDB(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		logger.Info("initialized SQLite backend", "db_path", cfg.DBPath)
		return &Result{
			Name:     cfg.DataBackend,
			Expenses: db,
			Profiles: db,
			Accounts: db,
			Ping:     db.Ping,
			Cleanup:  db.Close,
		}, nil

	case config.BackendFile:
		fs, err := filestore.New(cfg.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		logger.Info("initialized file backend", "csv_path", cfg.CSVPath)
		return &Result{Name: cfg.DataBackend, Expenses: fs, Profiles: memstore.New()}, nil

	case config.BackendMemory:
		mem := memstore.New()
		logger.Info("initialized memory backend")
		return &Result{Name: cfg.DataBackend, Expenses: mem, Profiles: mem, Accounts: mem}, nil

	case config.BackendSheets:
		st, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets store: %w", err)
		}
		return &Result{Name: cfg.DataBackend, Expenses: st, Profiles: memstore.New()}, nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
}
