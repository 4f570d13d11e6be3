// Package control describes the linear plant and its static state
// feedback.
//
//   - [System]: plant matrices A, B and feedback gain K
//   - [LQR]: u = -K·(x - target), the law folded into [System.ClosedLoop]
//
// # Usage
//
//	sys := control.NewTutorialSystem()
//	a := sys.ClosedLoop() // Ã = A − B·K
//	if !control.IsStable(a) { ... }
package control
