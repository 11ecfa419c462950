// Package services holds the Tracker, which turns store contents into the
// HUD shown by the web and terminal front ends.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pocket-survival/internal/budget"
	"pocket-survival/internal/log"
	"pocket-survival/internal/metrics"
	"pocket-survival/internal/models"
	"pocket-survival/internal/ports"
	"pocket-survival/internal/telemetry"

	"github.com/shopspring/decimal"
)

// RecentLimit caps the damage log shown on the dashboard.
const RecentLimit = 10

type Tracker struct {
	expenses ports.ExpenseStore
	budget   *budget.Holder
	events   ports.EventPublisher
	rec      *telemetry.Recorder
	loc      *time.Location
	now      func() time.Time
}

type Option func(*Tracker)

// WithPublisher announces spends and resets. Publish failures are logged and
// never fail the operation.
func WithPublisher(p ports.EventPublisher) Option {
	return func(t *Tracker) { t.events = p }
}

func WithRecorder(r *telemetry.Recorder) Option {
	return func(t *Tracker) { t.rec = r }
}

// WithLocation sets the zone used for month boundaries and weekday names.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(expenses ports.ExpenseStore, holder *budget.Holder, opts ...Option) *Tracker {
	t := &Tracker{expenses: expenses, budget: holder, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Location() *time.Location { return t.loc }

// Now is the current time in the tracker's zone.
func (t *Tracker) Now() time.Time { return t.now().In(t.loc) }

// Dashboard is everything the HUD renders.
type Dashboard struct {
	Profile models.Profile
	Metrics metrics.Metrics
	// Recent holds the newest expenses of the current month.
	Recent []models.Expense
	Now    time.Time
}

func (t *Tracker) Dashboard(ctx context.Context, owner string) (Dashboard, error) {
	profile, err := t.budget.Profile(ctx, owner)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load budget: %w", err)
	}
	all, err := t.expenses.List(ctx, owner)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list expenses: %w", err)
	}

	now := t.Now()
	metrics.SortRecent(all)
	var recent []models.Expense
	for _, e := range all {
		if len(recent) == RecentLimit {
			break
		}
		if metrics.InPeriod(e, now) {
			recent = append(recent, e)
		}
	}
	return Dashboard{
		Profile: profile,
		Metrics: metrics.Compute(profile.Ceiling, all, now),
		Recent:  recent,
		Now:     now,
	}, nil
}

// Spend records one expense. rawAmount accepts "12.50" and "12,50".
func (t *Tracker) Spend(ctx context.Context, owner, item, rawAmount string) (models.Expense, error) {
	amount, err := models.ParseAmount(rawAmount)
	if err != nil {
		t.rejected(err)
		return models.Expense{}, err
	}
	e, err := t.expenses.Insert(ctx, owner, item, amount, t.now())
	if err != nil {
		t.rejected(err)
		return models.Expense{}, err
	}
	t.rec.ExpenseLogged()

	log.FromContext(ctx).WithComponent(log.ComponentTracker).InfoContext(ctx, "expense logged",
		log.FieldOwner, owner, log.FieldItem, e.Item, log.FieldAmount, e.Amount.StringFixed(2))

	if t.events != nil {
		if err := t.events.PublishExpenseLogged(ctx, e); err != nil {
			log.Component(log.ComponentTracker).Err(ctx, "publish failed", "spend", err, "expense_id", e.ID)
		}
	}
	return e, nil
}

// Reset wipes the owner's ledger and restores the initial ceiling. The
// ceiling is restored first; if the ledger cannot be wiped it is put back, so
// a failed reset leaves both as they were.
func (t *Tracker) Reset(ctx context.Context, owner string) (models.Profile, error) {
	prev, err := t.budget.Profile(ctx, owner)
	if err != nil {
		return models.Profile{}, fmt.Errorf("load budget: %w", err)
	}
	p, err := t.budget.ResetToInitial(ctx, owner)
	if err != nil {
		return models.Profile{}, fmt.Errorf("reset budget: %w", err)
	}
	if err := t.expenses.Reset(ctx, owner); err != nil {
		if !prev.Ceiling.Equal(p.Ceiling) {
			if _, rbErr := t.budget.SetCeiling(ctx, owner, prev.Ceiling); rbErr != nil {
				log.Component(log.ComponentTracker).Err(ctx, "restoring ceiling after failed reset", "reset", rbErr, log.FieldOwner, owner)
			}
		}
		return models.Profile{}, fmt.Errorf("reset expenses: %w", err)
	}
	t.rec.Reset()

	log.FromContext(ctx).WithComponent(log.ComponentTracker).InfoContext(ctx, "ledger reset", log.FieldOwner, owner)

	if t.events != nil {
		if err := t.events.PublishReset(ctx, owner); err != nil {
			log.Component(log.ComponentTracker).Err(ctx, "publish failed", "reset", err)
		}
	}
	return p, nil
}

// SetBudget parses raw and stores it as the new ceiling.
func (t *Tracker) SetBudget(ctx context.Context, owner, raw string) (models.Profile, error) {
	ceiling, err := models.ParseCeiling(raw)
	if err != nil {
		t.rejected(err)
		return models.Profile{}, err
	}
	return t.budget.SetCeiling(ctx, owner, ceiling)
}

// ResetBudget restores the initial ceiling without touching expenses.
func (t *Tracker) ResetBudget(ctx context.Context, owner string) (models.Profile, error) {
	return t.budget.ResetToInitial(ctx, owner)
}

func (t *Tracker) Profile(ctx context.Context, owner string) (models.Profile, error) {
	return t.budget.Profile(ctx, owner)
}

// DayLog is the per-weekday breakdown of the whole ledger.
type DayLog struct {
	Days    []metrics.DayTotal
	Day     string
	Entries []models.Expense
	Total   decimal.Decimal
}

// DayLog groups every record by weekday and expands the selected day. An
// empty day selects the most recent one.
func (t *Tracker) DayLog(ctx context.Context, owner, day string) (DayLog, error) {
	day = strings.TrimSpace(day)
	if day != "" {
		canonical, ok := weekday(day)
		if !ok {
			t.rec.Rejected("day")
			return DayLog{}, &models.ValidationError{Field: "day", Reason: fmt.Sprintf("%q is not a day of the week", day)}
		}
		day = canonical
	}

	all, err := t.Records(ctx, owner)
	if err != nil {
		return DayLog{}, err
	}
	out := DayLog{Days: metrics.DayTotals(all, t.loc), Total: decimal.Zero}
	if day == "" && len(out.Days) > 0 {
		day = out.Days[0].Day
	}
	out.Day = day
	if day != "" {
		out.Entries = metrics.FilterDay(all, day, t.loc)
		out.Total = metrics.Sum(out.Entries)
	}
	return out, nil
}

// Records returns every expense of the owner, newest first.
func (t *Tracker) Records(ctx context.Context, owner string) ([]models.Expense, error) {
	all, err := t.expenses.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	metrics.SortRecent(all)
	return all, nil
}

func (t *Tracker) rejected(err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		t.rec.Rejected(ve.Field)
	}
}

func weekday(s string) (string, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d.String(), true
		}
	}
	return "", false
}
