package metrics

import (
	"time"

	"pocket-survival/internal/models"

	"github.com/shopspring/decimal"
)

// DayTotal sums the damage logged on one weekday.
type DayTotal struct {
	Day   string
	Total decimal.Decimal
	Count int
}

// DayTotals groups expenses by weekday name (as seen from loc), in order of
// first appearance.
func DayTotals(expenses []models.Expense, loc *time.Location) []DayTotal {
	idx := make(map[string]int)
	var out []DayTotal
	for _, e := range expenses {
		day := e.DayName(loc)
		i, ok := idx[day]
		if !ok {
			i = len(out)
			idx[day] = i
			out = append(out, DayTotal{Day: day, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
	}
	return out
}

// FilterDay keeps the expenses logged on the named weekday.
func FilterDay(expenses []models.Expense, day string, loc *time.Location) []models.Expense {
	var out []models.Expense
	for _, e := range expenses {
		if e.DayName(loc) == day {
			out = append(out, e)
		}
	}
	return out
}

// Sum adds up the amounts.
func Sum(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}
