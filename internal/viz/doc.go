// Package viz renders simulation summaries in the terminal.
//
//   - [PlotSummary]: asciigraph line plots of per-step mean or variance
//   - [SummaryTable], [ComparisonTable]: aligned text tables
//   - lipgloss styles shared with the live view
package viz
