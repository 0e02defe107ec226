package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"quantDashboard/internal/portfolio"
)

// Pct formats a ratio as a percentage, "n/a" when undefined.
func Pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// Num formats a plain number, "n/a" when undefined.
func Num(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

// Facts is the plain metric list handed to the commentator.
func (r Report) Facts() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assets: %s\n", strings.Join(r.Tickers, ", "))
	fmt.Fprintf(&b, "Rebalancing: %s\n", r.Rebalance)
	fmt.Fprintf(&b, "As of: %s\n", r.LastDate.Format(time.DateOnly))
	fmt.Fprintf(&b, "Portfolio value (start %s): %s\n", strconv.FormatFloat(r.InitialValue, 'f', -1, 64), Num(r.LastValue, 2))
	fmt.Fprintf(&b, "Annualized return: %s\n", Pct(r.AnnReturn))
	fmt.Fprintf(&b, "Annualized volatility: %s\n", Pct(r.AnnVol))
	fmt.Fprintf(&b, "Sharpe ratio: %s\n", Num(r.Sharpe, 2))
	fmt.Fprintf(&b, "Max drawdown: %s\n", Pct(r.MaxDrawdown))
	fmt.Fprintf(&b, "Diversification effect: %s\n", Num(r.Diversification, 4))
	return b.String()
}

// Markdown renders the report as a small markdown document.
func (r Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio report %s\n\n", r.CreatedAt.UTC().Format(time.DateOnly))
	fmt.Fprintf(&b, "%s, data through %s\n\n", strings.Join(r.Tickers, ", "), r.LastDate.Format(time.DateOnly))
	b.WriteString(KPITable(portfolio.Summary{
		FinalValue:      r.LastValue,
		AnnReturn:       r.AnnReturn,
		AnnVol:          r.AnnVol,
		Sharpe:          r.Sharpe,
		MaxDrawdown:     r.MaxDrawdown,
		Diversification: r.Diversification,
	}))
	if r.Commentary != "" {
		b.WriteString("\n## Commentary\n\n")
		b.WriteString(r.Commentary)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n_run %s_\n", r.ID)
	return b.String()
}

// KPITable renders the dashboard KPIs as a markdown table.
func KPITable(s portfolio.Summary) string {
	var b strings.Builder
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Final value | %s |\n", Num(s.FinalValue, 2))
	fmt.Fprintf(&b, "| Ann. return | %s |\n", Pct(s.AnnReturn))
	fmt.Fprintf(&b, "| Ann. vol | %s |\n", Pct(s.AnnVol))
	fmt.Fprintf(&b, "| Sharpe | %s |\n", Num(s.Sharpe, 2))
	fmt.Fprintf(&b, "| Max drawdown | %s |\n", Pct(s.MaxDrawdown))
	fmt.Fprintf(&b, "| Diversification | %s |\n", Num(s.Diversification, 4))
	return b.String()
}

// CorrelationTable renders a labelled matrix as a markdown table.
func CorrelationTable(m portfolio.Matrix) string {
	if m.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("| | " + strings.Join(m.Labels, " | ") + " |\n|---|")
	b.WriteString(strings.Repeat("---|", len(m.Labels)) + "\n")
	for i, l := range m.Labels {
		b.WriteString("| " + l + " |")
		for _, v := range m.Data[i] {
			b.WriteString(" " + Num(v, 2) + " |")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Render formats markdown for a terminal of the given width.
func Render(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
