// Package metrics derives the HUD values (HP, damage, daily allowance) from
// a budget ceiling and a list of expenses. Everything here is pure.
package metrics

import (
	"sort"
	"time"

	"pocket-survival/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Status is the game label for the current health.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusWounded   Status = "wounded"
	StatusCritical  Status = "critical"
	StatusDepleted  Status = "depleted"
	StatusOverdraft Status = "overdraft"
)

// Metrics is the derived state of one evaluation period (a calendar month).
type Metrics struct {
	Period         time.Time
	Ceiling        decimal.Decimal
	TotalSpent     decimal.Decimal
	Overspend      decimal.Decimal
	Remaining      decimal.Decimal
	HealthPercent  float64
	DaysLeft       int
	DailyAllowance decimal.Decimal
	Count          int
}

// Compute evaluates the month containing now. Expenses outside that month are
// ignored. It never fails: a zero ceiling yields 0% health.
func Compute(ceiling decimal.Decimal, expenses []models.Expense, now time.Time) Metrics {
	if ceiling.IsNegative() {
		ceiling = decimal.Zero
	}

	m := Metrics{
		Period:     StartOfMonth(now),
		Ceiling:    ceiling,
		TotalSpent: decimal.Zero,
	}
	for _, e := range expenses {
		if !InPeriod(e, now) {
			continue
		}
		m.TotalSpent = m.TotalSpent.Add(e.Amount)
		m.Count++
	}

	m.Overspend = decimal.Max(decimal.Zero, m.TotalSpent.Sub(ceiling))
	m.Remaining = decimal.Max(decimal.Zero, ceiling.Sub(m.TotalSpent))
	m.HealthPercent = HealthPercent(m.Remaining, ceiling)
	m.DaysLeft = DaysLeft(now)
	m.DailyAllowance = m.Remaining.Div(decimal.NewFromInt(int64(m.DaysLeft))).Round(2)
	return m
}

// HealthPercent returns remaining/ceiling as a percentage clamped to [0,100].
func HealthPercent(remaining, ceiling decimal.Decimal) float64 {
	if !ceiling.IsPositive() {
		return 0
	}
	pct := remaining.Div(ceiling).Mul(hundred)
	if pct.IsNegative() {
		return 0
	}
	if pct.GreaterThan(hundred) {
		return 100
	}
	return pct.Round(2).InexactFloat64()
}

// DaysLeft counts the days remaining after today in now's month, at least 1.
// It uses the real length of the month.
func DaysLeft(now time.Time) int {
	left := DaysInMonth(now) - now.Day()
	if left < 1 {
		return 1
	}
	return left
}

// DaysInMonth returns 28-31 for the month containing t.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// StartOfMonth returns midnight on the first day of t's month, in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// InPeriod reports whether e happened in the same calendar month and year as
// now, judged in now's location.
func InPeriod(e models.Expense, now time.Time) bool {
	at := e.OccurredAt.In(now.Location())
	return at.Year() == now.Year() && at.Month() == now.Month()
}

// Status maps the metrics onto a game label.
func (m Metrics) Status() Status {
	switch {
	case m.Overspend.IsPositive():
		return StatusOverdraft
	case m.HealthPercent > 50:
		return StatusHealthy
	case m.HealthPercent > 20:
		return StatusWounded
	case m.HealthPercent > 0:
		return StatusCritical
	default:
		return StatusDepleted
	}
}

// Fraction returns HealthPercent in [0,1] for progress bars.
func (m Metrics) Fraction() float64 {
	return m.HealthPercent / 100
}

// SortRecent orders expenses newest first, in place.
func SortRecent(expenses []models.Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].OccurredAt.After(expenses[j].OccurredAt)
	})
}
