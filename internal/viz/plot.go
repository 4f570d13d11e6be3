package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mcsim/internal/analysis"
)

// PlotSummary draws the mean (or variance) of both state components
// against the time step.
func PlotSummary(s analysis.Summary, variance bool, width, height int) string {
	if len(s) == 0 {
		return Subtle.Render("(no steps)")
	}

	what := "mean"
	if variance {
		what = "variance"
	}
	series := [][]float64{s.Series(0, variance), s.Series(1, variance)}
	if len(s) == 1 {
		// asciigraph needs at least two points to draw a line
		series = [][]float64{{series[0][0], series[0][0]}, {series[1][0], series[1][0]}}
	}

	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Blue),
		asciigraph.Caption(fmt.Sprintf("%s per step (x1 green, x2 blue)", what)),
	)
}

// SummaryTable renders every stride-th step of s as aligned columns.
func SummaryTable(s analysis.Summary, stride int) string {
	if stride < 1 {
		stride = 1
	}

	var sb strings.Builder
	sb.WriteString(Title.Render(fmt.Sprintf("%6s %12s %12s %12s %12s", "step", "mean_x1", "mean_x2", "var_x1", "var_x2")))
	sb.WriteString("\n")
	for t := 0; t < len(s); t += stride {
		m := s[t]
		sb.WriteString(fmt.Sprintf("%6d %12.6f %12.6f %12.6f %12.6f\n", t, m.Mean[0], m.Mean[1], m.Var[0], m.Var[1]))
	}
	if last := len(s) - 1; last >= 0 && last%stride != 0 {
		m := s[last]
		sb.WriteString(fmt.Sprintf("%6d %12.6f %12.6f %12.6f %12.6f\n", last, m.Mean[0], m.Mean[1], m.Var[0], m.Var[1]))
	}
	return sb.String()
}

// ComparisonRow is one line of a strategy comparison.
type ComparisonRow struct {
	Strategy string
	Workers  int
	Elapsed  time.Duration
	MeanDev  float64
	VarDev   float64
}

func ComparisonTable(rows []ComparisonRow) string {
	lines := []string{
		Title.Render(fmt.Sprintf("%-10s %8s %14s %12s %12s", "strategy", "workers", "elapsed", "Δmean", "Δvar")),
	}
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%-10s %8d %14s %12.6f %12.6f",
			r.Strategy, r.Workers, r.Elapsed.Round(time.Microsecond), r.MeanDev, r.VarDev))
	}
	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
