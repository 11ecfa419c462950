// Package budget owns each owner's HP ceiling.
package budget

import (
	"context"
	"errors"
	"time"

	"pocket-survival/internal/models"
	"pocket-survival/internal/ports"

	"github.com/shopspring/decimal"
)

// Holder reads and updates ceilings through a ProfileStore, creating a
// profile with the default ceiling the first time an owner is seen.
type Holder struct {
	profiles ports.ProfileStore
	initial  decimal.Decimal
	now      func() time.Time
}

// NewHolder seeds new profiles with defaultCeiling.
func NewHolder(profiles ports.ProfileStore, defaultCeiling decimal.Decimal) *Holder {
	return &Holder{profiles: profiles, initial: defaultCeiling, now: time.Now}
}

// Profile returns the owner's profile, creating it on first use.
func (h *Holder) Profile(ctx context.Context, owner string) (models.Profile, error) {
	p, err := h.profiles.GetProfile(ctx, owner)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.Profile{}, err
	}
	p = models.Profile{Owner: owner, Ceiling: h.initial, InitialCeiling: h.initial, UpdatedAt: h.now().UTC()}
	if err := h.profiles.SaveProfile(ctx, p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// Ceiling returns the owner's current ceiling.
func (h *Holder) Ceiling(ctx context.Context, owner string) (decimal.Decimal, error) {
	p, err := h.Profile(ctx, owner)
	return p.Ceiling, err
}

// SetCeiling replaces the ceiling. The remembered initial value is kept.
func (h *Holder) SetCeiling(ctx context.Context, owner string, ceiling decimal.Decimal) (models.Profile, error) {
	if err := models.ValidateCeiling(ceiling); err != nil {
		return models.Profile{}, err
	}
	p, err := h.Profile(ctx, owner)
	if err != nil {
		return models.Profile{}, err
	}
	p.Ceiling = ceiling.Round(2)
	p.UpdatedAt = h.now().UTC()
	return p, h.profiles.SaveProfile(ctx, p)
}

// ResetToInitial restores the ceiling the profile was created with.
func (h *Holder) ResetToInitial(ctx context.Context, owner string) (models.Profile, error) {
	p, err := h.Profile(ctx, owner)
	if err != nil {
		return models.Profile{}, err
	}
	p.Ceiling = p.InitialCeiling
	p.UpdatedAt = h.now().UTC()
	return p, h.profiles.SaveProfile(ctx, p)
}
