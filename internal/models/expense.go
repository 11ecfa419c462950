package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LocalOwner scopes records when the app runs without accounts.
const LocalOwner = "local"

// Expense is a single logged hit against the budget. Records are never
// updated once stored; they are only inserted or purged by a reset.
type Expense struct {
	ID         string          `json:"id" yaml:"id"`
	Owner      string          `json:"owner" yaml:"owner"`
	Item       string          `json:"item" yaml:"item"`
	Amount     decimal.Decimal `json:"amount" yaml:"amount"`
	OccurredAt time.Time       `json:"occurred_at" yaml:"occurred_at"`
}

// NewExpense validates the input and builds a record without an ID.
// Stores call it before touching durable state so a rejected record is
// never written.
func NewExpense(owner, item string, amount decimal.Decimal, occurredAt time.Time) (Expense, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return Expense{}, &ValidationError{Field: "item", Reason: "label must not be empty", Err: ErrEmptyItem}
	}
	if !amount.IsPositive() {
		return Expense{}, &ValidationError{Field: "amount", Reason: "amount must be greater than zero", Err: ErrInvalidAmount}
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return Expense{
		Owner:      owner,
		Item:       item,
		Amount:     amount,
		OccurredAt: occurredAt.UTC(),
	}, nil
}

// DayName returns the weekday of the expense as seen from loc.
func (e Expense) DayName(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return e.OccurredAt.In(loc).Weekday().String()
}

// Profile holds the budget ceiling of one owner.
type Profile struct {
	Owner          string          `json:"owner"`
	Ceiling        decimal.Decimal `json:"ceiling"`
	InitialCeiling decimal.Decimal `json:"initial_ceiling"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// User represents a user account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session represents a user session.
type Session struct {
	Token        string    `json:"token"`
	UserID       string    `json:"user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}
