// Package dynamo provides the Monte Carlo trajectory simulator for a
// two-dimensional linear system under state feedback.
//
// The package defines the core types and the stepping logic:
//
//   - [Buffer]: the (2, T, N) trajectory store, one contiguous block per trial
//   - [TrialView]: a mutable sub-view over a contiguous trial range
//   - [Kernel]: steps x[t] = Ã·x[t-1] + w[t] for every trial of a view
//   - [Noise]: independent standard normal draws
//   - [Driver]: serial, parallel and shared execution strategies
//
// # Example
//
//	pool, _ := compute.NewPool(runtime.NumCPU())
//	k, _ := dynamo.NewKernel(sys.ClosedLoop())
//	buf, _ := dynamo.NewBuffer(100, 1000)
//	d := dynamo.NewShared(k, dynamo.SeededGaussian(42), pool)
//	err := d.Run(ctx, buf, dynamo.State{1, 0})
//
// # Thread Safety
//
// A Buffer is owned by the caller of Driver.Run. Drivers hand out disjoint
// TrialViews to concurrent tasks; [Buffer.Split] rejects overlapping
// ranges, so no locking is needed on the trajectory data itself.
package dynamo
