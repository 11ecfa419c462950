package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"pocket-survival/internal/config"
	"pocket-survival/internal/models"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// setupAnswers are the fields the setup form edits.
type setupAnswers struct {
	Backend  string
	Path     string
	Ceiling  string
	Timezone string

	SpreadsheetID   string
	CredentialsFile string
}

func answersFrom(cfg config.Config) setupAnswers {
	ans := setupAnswers{
		Backend:         cfg.DataBackend,
		Ceiling:         cfg.DefaultCeiling,
		Timezone:        cfg.Timezone,
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}
	if cfg.DataBackend == config.BackendFile {
		ans.Path = cfg.CSVPath
	} else {
		ans.Path = cfg.DBPath
	}
	return ans
}

// apply copies the answers onto cfg and validates the result.
func (s setupAnswers) apply(cfg config.Config) (config.Config, error) {
	cfg.DataBackend = s.Backend
	switch s.Backend {
	case config.BackendSQLite:
		cfg.DBPath = strings.TrimSpace(s.Path)
	case config.BackendFile:
		cfg.CSVPath = strings.TrimSpace(s.Path)
	case config.BackendSheets:
		cfg.GoogleSpreadsheetID = strings.TrimSpace(s.SpreadsheetID)
		cfg.GoogleServiceAccountFile = strings.TrimSpace(s.CredentialsFile)
	}
	cfg.DefaultCeiling = strings.TrimSpace(s.Ceiling)
	cfg.Timezone = strings.TrimSpace(s.Timezone)
	return cfg, cfg.Validate()
}

func validateCeiling(s string) error {
	_, err := models.ParseCeiling(s)
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return errors.New(ve.Reason)
	}
	return err
}

func validateTimezone(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "Local" {
		return nil
	}
	_, err := time.LoadLocation(s)
	return err
}

func (a *app) setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-time configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, ok := a.in.(*os.File)
			if !ok || !term.IsTerminal(int(f.Fd())) {
				return errors.New("setup needs an interactive terminal; edit the config file or use environment variables instead")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ans := answersFrom(cfg)

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewSelect[string]().
						Title("Where should the ledger live?").
						Options(
							huh.NewOption("SQLite database", config.BackendSQLite),
							huh.NewOption("CSV file", config.BackendFile),
							huh.NewOption("Google Sheets", config.BackendSheets),
							huh.NewOption("Memory (lost on exit)", config.BackendMemory),
						).
						Value(&ans.Backend),
				),
				huh.NewGroup(
					huh.NewInput().
						Title("Ledger path").
						Description("Database or CSV file location").
						Value(&ans.Path),
				).WithHideFunc(func() bool {
					return ans.Backend != config.BackendSQLite && ans.Backend != config.BackendFile
				}),
				huh.NewGroup(
					huh.NewInput().
						Title("Spreadsheet ID").
						Value(&ans.SpreadsheetID),
					huh.NewInput().
						Title("Service account key file").
						Description("Path to the JSON credentials").
						Value(&ans.CredentialsFile),
				).WithHideFunc(func() bool { return ans.Backend != config.BackendSheets }),
				huh.NewGroup(
					huh.NewInput().
						Title("Monthly budget (max HP)").
						Value(&ans.Ceiling).
						Validate(validateCeiling),
					huh.NewInput().
						Title("Timezone").
						Description(`IANA name such as "Europe/Rome", or "Local"`).
						Value(&ans.Timezone).
						Validate(validateTimezone),
				),
			)
			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					a.printf(cmd, "Setup cancelled.\n")
					return nil
				}
				return err
			}

			cfg, err = ans.apply(cfg)
			if err != nil {
				return err
			}
			if err := config.Save(config.Path(), cfg); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			a.printf(cmd, "Saved to %s\n", config.Path())
			a.printf(cmd, "Run `hp setup` anytime to reconfigure.\n")
			return nil
		},
	}
}
