package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"pocket-survival/internal/log"
	"pocket-survival/internal/metrics"
	"pocket-survival/internal/models"
	"pocket-survival/internal/services"
)

// DamageItem is one row of the recent damage log.
type DamageItem struct {
	Item   string
	Amount string
	Day    string
	Time   string
}

// BattleViewModel is the data passed to the battle (dashboard) view.
type BattleViewModel struct {
	Username  string
	MultiUser bool

	MaxHP          string
	CurrentHP      string
	Damage         string
	Overspend      string
	HealthPercent  float64
	HealthLabel    string
	Status         string
	Overdraft      bool
	DaysLeft       int
	DailyAllowance string
	Month          string
	Recent         []DamageItem

	Flash     string
	FlashKind string
	// Sticky form values after a rejected submission.
	Item   string
	Amount string
}

func hpClass(status string) string {
	switch metrics.Status(status) {
	case metrics.StatusHealthy:
		return "hp-high"
	case metrics.StatusWounded:
		return "hp-mid"
	}
	return "hp-low"
}

func (h *Handlers) battleModel(r *http.Request, d services.Dashboard) BattleViewModel {
	m := d.Metrics
	vm := BattleViewModel{
		MultiUser:      h.MultiUser(),
		MaxHP:          m.Ceiling.StringFixed(2),
		CurrentHP:      m.Remaining.StringFixed(2),
		Damage:         m.TotalSpent.StringFixed(2),
		Overspend:      m.Overspend.StringFixed(2),
		HealthPercent:  m.HealthPercent,
		HealthLabel:    fmt.Sprintf("%.0f%%", m.HealthPercent),
		Status:         string(m.Status()),
		Overdraft:      m.Status() == metrics.StatusOverdraft,
		DaysLeft:       m.DaysLeft,
		DailyAllowance: m.DailyAllowance.StringFixed(2),
		Month:          d.Now.Format("January 2006"),
	}
	if u := GetUserFromContext(r); u != nil {
		vm.Username = u.Username
	}
	loc := h.tracker.Location()
	for _, e := range d.Recent {
		vm.Recent = append(vm.Recent, DamageItem{
			Item:   e.Item,
			Amount: e.Amount.StringFixed(2),
			Day:    e.DayName(loc),
			Time:   e.OccurredAt.In(loc).Format("Jan 02, 15:04"),
		})
	}
	return vm
}

// showBattle renders the battle view, optionally with a flash message.
func (h *Handlers) showBattle(w http.ResponseWriter, r *http.Request, flash, kind string, status int, sticky func(*BattleViewModel)) {
	d, err := h.tracker.Dashboard(r.Context(), owner(r))
	if err != nil {
		log.FromContext(r.Context()).Err(r.Context(), "dashboard failed", "battle", err, log.FieldOwner, owner(r))
		http.Error(w, "The ledger could not be reached. Try again.", http.StatusInternalServerError)
		return
	}
	vm := h.battleModel(r, d)
	vm.Flash, vm.FlashKind = flash, kind
	if sticky != nil {
		sticky(&vm)
	}
	h.renderStatus(w, r, "battle.html", vm, status)
}

// Battle renders the HUD, the spend form and the recent damage log.
func (h *Handlers) Battle(w http.ResponseWriter, r *http.Request) {
	h.showBattle(w, r, "", "", http.StatusOK, nil)
}

// done finishes a successful POST: HTMX gets the fresh view, a plain form
// post is redirected back to the battle screen.
func (h *Handlers) done(w http.ResponseWriter, r *http.Request, flash string) {
	if isHTMX(r) {
		h.showBattle(w, r, flash, "ok", http.StatusOK, nil)
		return
	}
	http.Redirect(w, r, "/battle", http.StatusSeeOther)
}

// Spend logs one expense (damage).
func (h *Handlers) Spend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	item := r.FormValue("item")
	amount := r.FormValue("amount")

	e, err := h.tracker.Spend(r.Context(), owner(r), item, amount)
	if err != nil {
		h.fail(w, r, err, func(flash string, status int) {
			h.showBattle(w, r, flash, "error", status, func(vm *BattleViewModel) {
				vm.Item, vm.Amount = item, amount
			})
		})
		return
	}
	h.done(w, r, fmt.Sprintf("%s hit you for %s HP.", e.Item, e.Amount.StringFixed(2)))
}

// Reset wipes the owner's ledger and restores the starting ceiling.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	if _, err := h.tracker.Reset(r.Context(), owner(r)); err != nil {
		h.fail(w, r, err, func(flash string, status int) {
			h.showBattle(w, r, flash, "error", status, nil)
		})
		return
	}
	h.done(w, r, "New month, full health.")
}

// Budget changes the ceiling (max HP). Submitting action=reset restores the
// initial ceiling instead.
func (h *Handlers) Budget(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	var (
		p   models.Profile
		err error
	)
	if strings.EqualFold(r.FormValue("action"), "reset") {
		p, err = h.tracker.ResetBudget(r.Context(), owner(r))
	} else {
		p, err = h.tracker.SetBudget(r.Context(), owner(r), r.FormValue("ceiling"))
	}
	if err != nil {
		h.fail(w, r, err, func(flash string, status int) {
			h.showBattle(w, r, flash, "error", status, nil)
		})
		return
	}
	h.done(w, r, fmt.Sprintf("Max HP is now %s.", p.Ceiling.StringFixed(2)))
}
