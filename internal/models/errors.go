package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyItem          = errors.New("empty item")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeCeiling    = errors.New("negative ceiling")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("user already exists")
	ErrNotFound           = errors.New("not found")
)

// ValidationError reports input rejected before any state was changed.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StorageError wraps a backend failure (unreachable file, query error, API error).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// AuthError reports a failed sign-in or registration.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string { return e.Reason }

func (e *AuthError) Unwrap() error { return e.Err }

// WrapStorage returns nil for a nil err, otherwise a *StorageError. Errors
// that already carry a classification pass through untouched.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var se *StorageError
	if errors.As(err, &ve) || errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuth reports whether err is an *AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// ParseAmount parses a user supplied money value. Both "12.50" and "12,50"
// are accepted; zero, negative and malformed values are rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "amount is required", Err: ErrInvalidAmount}
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: fmt.Sprintf("%q is not a number", raw), Err: ErrInvalidAmount}
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "amount must be greater than zero", Err: ErrInvalidAmount}
	}
	return d, nil
}

// ParseCeiling parses a budget value. Zero is allowed, negatives are not.
func ParseCeiling(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "ceiling", Reason: fmt.Sprintf("%q is not a number", raw), Err: ErrInvalidAmount}
	}
	if err := ValidateCeiling(d); err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

// ValidateCeiling enforces ceiling >= 0.
func ValidateCeiling(d decimal.Decimal) error {
	if d.IsNegative() {
		return &ValidationError{Field: "ceiling", Reason: "budget cannot be negative", Err: ErrNegativeCeiling}
	}
	return nil
}
