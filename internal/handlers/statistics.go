package handlers

import (
	"net/http"

	"pocket-survival/internal/log"
	"pocket-survival/internal/models"

	"github.com/shopspring/decimal"
)

// StatsDayItem represents a weekday with its damage statistics.
type StatsDayItem struct {
	Day        string
	Total      string
	Count      int
	Percentage float64
	Selected   bool
}

// LogsViewModel is the data passed to the intelligence report view.
type LogsViewModel struct {
	Username  string
	MultiUser bool
	Days      []StatsDayItem
	Day       string
	Entries   []DamageItem
	DayTotal  string
	Total     string
	Flash     string
}

// Logs renders the per-weekday breakdown of the whole ledger and the records
// of the selected day (?day=Monday).
func (h *Handlers) Logs(w http.ResponseWriter, r *http.Request) {
	vm := LogsViewModel{MultiUser: h.MultiUser()}
	if u := GetUserFromContext(r); u != nil {
		vm.Username = u.Username
	}

	report, err := h.tracker.DayLog(r.Context(), owner(r), r.URL.Query().Get("day"))
	if err != nil {
		if models.IsValidation(err) {
			report, err = h.tracker.DayLog(r.Context(), owner(r), "")
			vm.Flash = "Unknown day; showing the latest one instead."
		}
		if err != nil {
			log.FromContext(r.Context()).Err(r.Context(), "day log failed", "logs", err, log.FieldOwner, owner(r))
			http.Error(w, "The ledger could not be reached. Try again.", http.StatusInternalServerError)
			return
		}
	}

	total := decimal.Zero
	for _, d := range report.Days {
		total = total.Add(d.Total)
	}
	for _, d := range report.Days {
		pct := 0.0
		if total.IsPositive() {
			pct = d.Total.Div(total).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
		}
		vm.Days = append(vm.Days, StatsDayItem{
			Day:        d.Day,
			Total:      d.Total.StringFixed(2),
			Count:      d.Count,
			Percentage: pct,
			Selected:   d.Day == report.Day,
		})
	}
	vm.Total = total.StringFixed(2)
	vm.Day = report.Day
	vm.DayTotal = report.Total.StringFixed(2)

	loc := h.tracker.Location()
	for _, e := range report.Entries {
		vm.Entries = append(vm.Entries, DamageItem{
			Item:   e.Item,
			Amount: e.Amount.StringFixed(2),
			Day:    e.DayName(loc),
			Time:   e.OccurredAt.In(loc).Format("Jan 02, 15:04"),
		})
	}

	h.render(w, r, "logs.html", vm)
}
