// Package filestore keeps expenses in a single CSV file, one row per record.
package filestore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pocket-survival/internal/models"
	"pocket-survival/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ ports.ExpenseStore = (*Store)(nil)

// Header is the first row of every file written by Store.
var Header = []string{"id", "owner", "item", "amount", "timestamp"}

// Store is an ExpenseStore over one CSV file. A mutex serialises access
// within the process; the file is not locked against other processes.
type Store struct {
	mu   sync.Mutex
	path string
}

// New opens the CSV file at path, creating it with a header row when absent.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, models.WrapStorage("open", fmt.Errorf("create data dir: %w", err))
		}
	}
	s := &Store{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.rewrite(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, models.WrapStorage("open", err)
	}
	return s, nil
}

// Path returns the CSV file location.
func (s *Store) Path() string { return s.path }

// Insert validates the expense and appends it as one row.
func (s *Store) Insert(ctx context.Context, owner, item string, amount decimal.Decimal, occurredAt time.Time) (models.Expense, error) {
	e, err := models.NewExpense(owner, item, amount, occurredAt)
	if err != nil {
		return models.Expense{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Expense{}, models.WrapStorage("insert", err)
	}
	e.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return models.Expense{}, models.WrapStorage("insert", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(toRow(e)); err != nil {
		return models.Expense{}, models.WrapStorage("insert", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return models.Expense{}, models.WrapStorage("insert", err)
	}
	return e, nil
}

// List reads the whole file and returns the owner's rows in file order.
func (s *Store) List(ctx context.Context, owner string) ([]models.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.WrapStorage("list", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
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

// Reset drops the owner's rows. The file is rewritten through a temporary
// file and renamed into place so a crash never leaves a half-written ledger.
func (s *Store) Reset(ctx context.Context, owner string) error {
	if err := ctx.Err(); err != nil {
		return models.WrapStorage("reset", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return models.WrapStorage("reset", err)
	}
	keep := all[:0]
	for _, e := range all {
		if e.Owner != owner {
			keep = append(keep, e)
		}
	}
	return s.rewrite(keep)
}

func (s *Store) readAll() ([]models.Expense, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	var out []models.Expense
	line := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && row[0] == Header[0] {
			continue
		}
		e, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) rewrite(expenses []models.Expense) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".expenses-*.csv")
	if err != nil {
		return models.WrapStorage("rewrite", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	rows := make([][]string, 0, len(expenses)+1)
	rows = append(rows, Header)
	for _, e := range expenses {
		rows = append(rows, toRow(e))
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return models.WrapStorage("rewrite", err)
	}
	if err := tmp.Close(); err != nil {
		return models.WrapStorage("rewrite", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return models.WrapStorage("rewrite", err)
	}
	return nil
}

func toRow(e models.Expense) []string {
	return []string{e.ID, e.Owner, e.Item, e.Amount.String(), e.OccurredAt.UTC().Format(time.RFC3339Nano)}
}

func fromRow(row []string) (models.Expense, error) {
	amount, err := decimal.NewFromString(row[3])
	if err != nil {
		return models.Expense{}, fmt.Errorf("amount %q: %w", row[3], err)
	}
	ts, err := time.Parse(time.RFC3339Nano, row[4])
	if err != nil {
		return models.Expense{}, fmt.Errorf("timestamp %q: %w", row[4], err)
	}
	return models.Expense{ID: row[0], Owner: row[1], Item: row[2], Amount: amount, OccurredAt: ts.UTC()}, nil
}
