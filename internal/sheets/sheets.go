// Package sheets stores expenses in a Google Sheets tab. Each row holds one
// record in the columns id, owner, item, amount, timestamp (A:E); row 1 is a
// header.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"pocket-survival/internal/log"
	"pocket-survival/internal/models"
	"pocket-survival/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ports.ExpenseStore = (*Store)(nil)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	Timeout            time.Duration
}

// Store is an ExpenseStore backed by one tab of a spreadsheet. Profiles are
// not kept in the sheet.
type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	timeout       time.Duration
}

// New creates a Store using service account credentials from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	var credentials []byte
	switch {
	case cfg.ServiceAccountJSON != "":
		credentials = []byte(cfg.ServiceAccountJSON)
	case cfg.ServiceAccountFile != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	return NewWithOptions(ctx, cfg,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions creates a Store with explicit client options. Tests use it
// to point the client at a local server.
func NewWithOptions(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	sheet := cfg.SheetName
	if sheet == "" {
		sheet = "Expenses"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log.Component(log.ComponentSheets).Info("sheets store ready", "spreadsheet", cfg.SpreadsheetID, "sheet", sheet)
	return &Store{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: sheet, timeout: timeout}, nil
}

func (s *Store) dataRange() string { return fmt.Sprintf("%s!A2:E", s.sheet) }

// Insert validates the expense and appends it below the last row.
func (s *Store) Insert(ctx context.Context, owner, item string, amount decimal.Decimal, occurredAt time.Time) (models.Expense, error) {
	e, err := models.NewExpense(owner, item, amount, occurredAt)
	if err != nil {
		return models.Expense{}, err
	}
	e.ID = uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vr := &gsheet.ValueRange{Values: [][]any{toRow(e)}}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, fmt.Sprintf("%s!A:E", s.sheet), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return models.Expense{}, models.WrapStorage("insert", fmt.Errorf("append to %s: %w", s.sheet, err))
	}
	return e, nil
}

// List returns the owner's rows in sheet order.
func (s *Store) List(ctx context.Context, owner string) ([]models.Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	all, err := s.readAll(ctx)
	if err != nil {
		return nil, models.WrapStorage("list", err)
	}
	var out []models.Expense
	for _, e := range all {
		if e.Owner == owner {
			out = append(out, e)
		}
	}
	return out, nil
}

// Reset removes the owner's rows with one batchUpdate of DeleteDimension
// requests. The API applies a batch all or nothing, so a failed reset leaves
// the tab untouched. Runs are deleted bottom-up so earlier indexes stay valid.
func (s *Store) Reset(ctx context.Context, owner string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.readRows(ctx)
	if err != nil {
		return models.WrapStorage("reset", err)
	}
	var reqs []*gsheet.Request
	for i := len(rows) - 1; i >= 0; {
		if rows[i].expense.Owner != owner {
			i--
			continue
		}
		end := rows[i].index + 1
		start := rows[i].index
		for i--; i >= 0 && rows[i].expense.Owner == owner && rows[i].index == start-1; i-- {
			start--
		}
		reqs = append(reqs, &gsheet.Request{DeleteDimension: &gsheet.DeleteDimensionRequest{
			Range: &gsheet.DimensionRange{Dimension: "ROWS", StartIndex: start, EndIndex: end},
		}})
	}
	if len(reqs) == 0 {
		return nil
	}

	id, err := s.sheetID(ctx)
	if err != nil {
		return models.WrapStorage("reset", err)
	}
	for _, r := range reqs {
		r.DeleteDimension.Range.SheetId = id
		r.DeleteDimension.Range.ForceSendFields = []string{"SheetId"}
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do(); err != nil {
		return models.WrapStorage("reset", fmt.Errorf("delete rows from %s: %w", s.sheet, err))
	}
	return nil
}

// sheetID resolves the numeric id of the tab, which row deletes need.
func (s *Store) sheetID(ctx context.Context) (int64, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.sheet {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", s.sheet)
}

// sheetRow is a parsed record and its zero-based row index in the tab.
type sheetRow struct {
	index   int64
	expense models.Expense
}

func (s *Store) readAll(ctx context.Context) ([]models.Expense, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Expense, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.expense)
	}
	return out, nil
}

func (s *Store) readRows(ctx context.Context) ([]sheetRow, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.sheet, err)
	}
	out := make([]sheetRow, 0, len(resp.Values))
	for i, row := range resp.Values {
		e, err := fromRow(row)
		if err != nil {
			// Hand-edited rows are skipped rather than failing the whole read.
			log.Component(log.ComponentSheets).Warn("skipping unreadable row", "row", i+2, "error", err)
			continue
		}
		// Row 1 (index 0) is the header.
		out = append(out, sheetRow{index: int64(i) + 1, expense: e})
	}
	return out, nil
}

func toRow(e models.Expense) []any {
	return []any{e.ID, e.Owner, e.Item, e.Amount.String(), e.OccurredAt.UTC().Format(time.RFC3339Nano)}
}

func fromRow(row []any) (models.Expense, error) {
	if len(row) < 5 {
		return models.Expense{}, fmt.Errorf("expected 5 cells, got %d", len(row))
	}
	cell := func(i int) string { return strings.TrimSpace(fmt.Sprint(row[i])) }

	amount, err := decimal.NewFromString(strings.ReplaceAll(cell(3), ",", "."))
	if err != nil {
		return models.Expense{}, fmt.Errorf("amount %q: %w", cell(3), err)
	}
	ts, err := time.Parse(time.RFC3339Nano, cell(4))
	if err != nil {
		return models.Expense{}, fmt.Errorf("timestamp %q: %w", cell(4), err)
	}
	return models.Expense{ID: cell(0), Owner: cell(1), Item: cell(2), Amount: amount, OccurredAt: ts.UTC()}, nil
}
