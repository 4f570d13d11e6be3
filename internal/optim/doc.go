// Package optim searches feedback gains for the smallest spread of the
// simulated trajectories.
package optim
