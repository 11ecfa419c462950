// Package export writes an owner's ledger as CSV, JSON or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"pocket-survival/internal/models"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts csv, json, yaml and yml. An empty string means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", &models.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown export format %q (want csv, json or yaml)", s)}
}

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	}
	return "text/csv"
}

func (f Format) Ext() string { return string(f) }

// Row is one exported expense. The weekday and timestamp are rendered in the
// display zone.
type Row struct {
	ID        string `json:"id" yaml:"id"`
	Item      string `json:"item" yaml:"item"`
	Amount    string `json:"amount" yaml:"amount"`
	Day       string `json:"day" yaml:"day"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

var header = []string{"id", "item", "amount", "day", "timestamp"}

func Rows(expenses []models.Expense, loc *time.Location) []Row {
	if loc == nil {
		loc = time.Local
	}
	rows := make([]Row, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, Row{
			ID:        e.ID,
			Item:      e.Item,
			Amount:    e.Amount.StringFixed(2),
			Day:       e.DayName(loc),
			Timestamp: e.OccurredAt.In(loc).Format(time.RFC3339),
		})
	}
	return rows
}

// Write encodes expenses to w in format f.
func Write(w io.Writer, f Format, expenses []models.Expense, loc *time.Location) error {
	rows := Rows(expenses, loc)
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write([]string{r.ID, r.Item, r.Amount, r.Day, r.Timestamp}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}
	return fmt.Errorf("unsupported format %q", f)
}

// Filename suggests a download name such as hp-ledger-2026-10.csv.
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("hp-ledger-%s.%s", now.Format("2006-01"), f.Ext())
}
