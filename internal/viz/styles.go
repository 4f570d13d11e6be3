package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#5fd7ff")
	muted   = lipgloss.Color("#6c7086")
	good    = lipgloss.Color("#a6e3a1")
	warn    = lipgloss.Color("#f9e2af")
	bad     = lipgloss.Color("#f38ba8")
	surface = lipgloss.Color("#45475a")

	Panel = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(surface).Padding(0, 1)
	Title = lipgloss.NewStyle().Bold(true).Foreground(accent)

	Subtle  = lipgloss.NewStyle().Foreground(muted)
	KeyHint = Subtle.Italic(true)

	StatusRunning = lipgloss.NewStyle().Bold(true).Foreground(good)
	StatusDone    = lipgloss.NewStyle().Bold(true).Foreground(warn)
	StatusFailed  = lipgloss.NewStyle().Bold(true).Foreground(bad)

	MetricLabel = lipgloss.NewStyle().Foreground(muted)
	MetricValue = lipgloss.NewStyle().Bold(true).Foreground(accent)

	SparkHigh = lipgloss.NewStyle().Foreground(good)
	SparkMid  = lipgloss.NewStyle().Foreground(warn)
	SparkLow  = lipgloss.NewStyle().Foreground(bad)
)

// Metric renders "label value" with the metric styles.
func Metric(label, value string) string {
	return MetricLabel.Render(label+" ") + MetricValue.Render(value)
}

// ProgressBar renders a bar filled to percent (0..1).
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	if percent > 0.8 {
		return SparkHigh.Render(bar)
	} else if percent > 0.4 {
		return SparkMid.Render(bar)
	}
	return SparkLow.Render(bar)
}

// Sparkline renders values as one row of block characters.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)
		result.WriteRune(chars[idx])
	}
	return result.String()
}
