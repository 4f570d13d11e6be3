// Package compute provides the bounded worker pool the parallel drivers
// run on.
//
// The pool is an explicit value sized once, by default to the number of
// logical CPUs, and passed to whatever needs to run concurrent work:
//
//	pool := compute.NewCPUPool()
//	err := pool.Dispatch(ctx, tasks)
//
// Dispatch is a single join point: it returns after every started task
// has finished, with the first error any task produced.
package compute
