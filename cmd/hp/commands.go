package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"pocket-survival/internal/export"
	"pocket-survival/internal/hud"
	"pocket-survival/internal/models"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const owner = models.LocalOwner

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the HP bar and this month's damage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStatus(cmd)
		},
	}
}

func (a *app) runStatus(cmd *cobra.Command) error {
	return a.withLedger(func(cmd *cobra.Command, _ []string) error {
		d, err := a.tracker.Dashboard(cmd.Context(), owner)
		if err != nil {
			return err
		}
		a.printf(cmd, "%s\n", hud.Status(d.Metrics, hud.DefaultWidth))
		if len(d.Recent) > 0 {
			a.printf(cmd, "%s\n", hud.Ledger("Recent damage", d.Recent, a.tracker.Location()))
		}
		return nil
	})(cmd, nil)
}

func (a *app) spendCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "spend <item> <amount>",
		Short:   "Take damage: record an expense",
		Example: `  hp spend Coffee 3.50
  hp spend "Train ticket" 12,80`,
		Args: cobra.MinimumNArgs(2),
		RunE: a.withLedger(func(cmd *cobra.Command, args []string) error {
			item := strings.Join(args[:len(args)-1], " ")
			e, err := a.tracker.Spend(cmd.Context(), owner, item, args[len(args)-1])
			if err != nil {
				return err
			}
			d, err := a.tracker.Dashboard(cmd.Context(), owner)
			if err != nil {
				return err
			}
			a.printf(cmd, "%s hit you for %s HP.\n", e.Item, e.Amount.StringFixed(2))
			a.printf(cmd, "%s\n", hud.HPBar(d.Metrics.HealthPercent, d.Metrics.Status(), hud.DefaultWidth))
			return nil
		}),
	}
}

func (a *app) logCmd() *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show damage grouped by weekday",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string) error {
			report, err := a.tracker.DayLog(cmd.Context(), owner, day)
			if err != nil {
				return err
			}
			if len(report.Days) == 0 {
				a.printf(cmd, "No records yet. Survive a little first.\n")
				return nil
			}
			a.printf(cmd, "%s\n", hud.Days(report.Days, report.Day))
			title := fmt.Sprintf("%s: %s", report.Day, report.Total.StringFixed(2))
			a.printf(cmd, "%s\n", hud.Ledger(title, report.Entries, a.tracker.Location()))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&day, "day", "d", "", "Weekday to expand (default: the latest one)")
	return cmd
}

func (a *app) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe every expense and restore the starting HP",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string) error {
			if !yes {
				ok, err := a.confirm("Wipe every expense and restart the month?")
				if err != nil {
					return err
				}
				if !ok {
					a.printf(cmd, "Nothing changed.\n")
					return nil
				}
			}
			p, err := a.tracker.Reset(cmd.Context(), owner)
			if err != nil {
				return err
			}
			a.printf(cmd, "New month, full health: %s HP.\n", p.Ceiling.StringFixed(2))
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// confirm asks on a terminal with a huh prompt and reads a y/n line otherwise.
func (a *app) confirm(question string) (bool, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		var ok bool
		err := huh.NewConfirm().Title(question).Affirmative("Yes").Negative("No").Value(&ok).Run()
		return ok, err
	}
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (a *app) budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show or change the monthly ceiling (max HP)",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current ceiling",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string) error {
			p, err := a.tracker.Profile(cmd.Context(), owner)
			if err != nil {
				return err
			}
			a.printf(cmd, "Max HP: %s (starting value %s)\n", p.Ceiling.StringFixed(2), p.InitialCeiling.StringFixed(2))
			return nil
		}),
	}

	set := &cobra.Command{
		Use:   "set <amount>",
		Short: "Change the ceiling",
		Args:  cobra.ExactArgs(1),
		RunE: a.withLedger(func(cmd *cobra.Command, args []string) error {
			p, err := a.tracker.SetBudget(cmd.Context(), owner, args[0])
			if err != nil {
				return err
			}
			a.printf(cmd, "Max HP is now %s.\n", p.Ceiling.StringFixed(2))
			a.warnVolatile(cmd)
			return nil
		}),
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the starting ceiling",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string) error {
			p, err := a.tracker.ResetBudget(cmd.Context(), owner)
			if err != nil {
				return err
			}
			a.printf(cmd, "Max HP is now %s.\n", p.Ceiling.StringFixed(2))
			return nil
		}),
	}

	cmd.AddCommand(show, set, reset)
	return cmd
}

func (a *app) warnVolatile(cmd *cobra.Command) {
	if !a.profilesPersist() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Note: the %s backend keeps budgets in memory; set default_ceiling with `hp setup` to keep it.\n", a.res.Name)
	}
}

func (a *app) exportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole ledger as CSV, JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: a.withLedger(func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			records, err := a.tracker.Records(cmd.Context(), owner)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer file.Close()
				w = file
			}
			if err := export.Write(w, f, records, a.tracker.Location()); err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", len(records), out)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv, json or yaml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	return cmd
}
