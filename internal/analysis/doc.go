// Package analysis reduces trajectory buffers to per-step statistics.
//
//   - [Summarize]: sample mean and variance of each component per step
//   - [Accumulator]: the same moments pooled over several buffers
//   - [ExpectedMoments]: exact mean and covariance of the linear recurrence
//   - [StationaryCovariance]: solution of P = Ã·P·Ãᵀ + I
//
// # Usage
//
//	s := analysis.Summarize(buf)
//	fmt.Println(s[len(s)-1].Var)
package analysis
