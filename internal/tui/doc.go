// Package tui is the Bubble Tea live view of an accumulating Monte Carlo
// ensemble.
package tui
