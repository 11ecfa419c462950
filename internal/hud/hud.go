// Package hud renders the survival HUD for the terminal: the HP bar, the
// month's stats and ledger tables.
package hud

import (
	"fmt"
	"strings"
	"time"

	"pocket-survival/internal/metrics"
	"pocket-survival/internal/models"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Palette (retro green-on-black, red when hurting)
var (
	ColorBorder = lipgloss.Color("#2F3B2F")
	ColorDim    = lipgloss.Color("#5C6B5C")
	ColorText   = lipgloss.Color("#E8F5E8")
	ColorGreen  = lipgloss.Color("#39FF14")
	ColorYellow = lipgloss.Color("#FFD23F")
	ColorOrange = lipgloss.Color("#FF8C42")
	ColorRed    = lipgloss.Color("#FF3B3B")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	labelStyle = lipgloss.NewStyle().Foreground(ColorDim)
	valueStyle = lipgloss.NewStyle().Foreground(ColorText)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
)

// DefaultWidth is the bar width used when the caller has no terminal size.
const DefaultWidth = 30

// ColorFor maps a status onto the bar colour.
func ColorFor(s metrics.Status) lipgloss.Color {
	switch s {
	case metrics.StatusHealthy:
		return ColorGreen
	case metrics.StatusWounded:
		return ColorYellow
	case metrics.StatusCritical:
		return ColorOrange
	}
	return ColorRed
}

// HPBar renders pct (0-100) as a solid bar followed by the percentage.
func HPBar(pct float64, status metrics.Status, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	frac := pct / 100
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	color := ColorFor(status)
	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(ColorBorder)

	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	return bar.ViewAs(frac) + " " + pctStyle.Render(fmt.Sprintf("%3.0f%%", pct))
}

// Status renders the full HUD box for one month.
func Status(m metrics.Metrics, width int) string {
	status := m.Status()
	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-16s", label)) + valueStyle.Render(value)
	}

	lines := []string{
		titleStyle.Render("POCKET SURVIVAL · " + m.Period.Format("January 2006")),
		"",
		row("HP", fmt.Sprintf("%s / %s", m.Remaining.StringFixed(2), m.Ceiling.StringFixed(2))),
		HPBar(m.HealthPercent, status, width),
		"",
		row("Damage taken", m.TotalSpent.StringFixed(2)),
		row("Days left", fmt.Sprintf("%d", m.DaysLeft)),
		row("Daily allowance", m.DailyAllowance.StringFixed(2)),
		row("Status", lipgloss.NewStyle().Foreground(ColorFor(status)).Bold(true).Render(strings.ToUpper(string(status)))),
	}
	if status == metrics.StatusOverdraft {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(ColorRed).Bold(true).
			Render(fmt.Sprintf("SYSTEM BREACH: %s over budget", m.Overspend.StringFixed(2))))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// Table is a titled, bordered text table. The first column is left-aligned,
// the others right-aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (t Table) String() string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i == 0 {
				parts[i] = fmt.Sprintf("%-*s", w, cell)
			} else {
				parts[i] = fmt.Sprintf("%*s", w, cell)
			}
		}
		return style.Render(strings.Join(parts, "  "))
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(titleStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(line(t.Headers, labelStyle))
	for _, row := range t.Rows {
		b.WriteString("\n")
		b.WriteString(line(row, valueStyle))
	}
	return boxStyle.Render(b.String())
}

// Ledger lists expenses as a table, times shown in loc.
func Ledger(title string, entries []models.Expense, loc *time.Location) string {
	if len(entries) == 0 {
		return labelStyle.Render("No damage recorded.")
	}
	t := Table{Title: title, Headers: []string{"Item", "Day", "When", "Damage"}}
	for _, e := range entries {
		at := e.OccurredAt.In(loc)
		t.Rows = append(t.Rows, []string{e.Item, e.DayName(loc), at.Format("Jan 02 15:04"), e.Amount.StringFixed(2)})
	}
	return t.String()
}

// Days renders the per-weekday breakdown, marking the selected day.
func Days(days []metrics.DayTotal, selected string) string {
	t := Table{Title: "Damage by weekday", Headers: []string{"Day", "Hits", "Total"}}
	for _, d := range days {
		name := d.Day
		if d.Day == selected {
			name = "> " + name
		}
		t.Rows = append(t.Rows, []string{name, fmt.Sprintf("%d", d.Count), d.Total.StringFixed(2)})
	}
	return t.String()
}
