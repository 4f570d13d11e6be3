package dynamo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Kernel advances trajectories under the closed-loop recurrence
//
//	x[t] = Ã·x[t-1] + w[t],  w[t] ~ N(0, I₂)
//
// Ã is captured once at construction; a Kernel is immutable and may be
// shared by any number of concurrent tasks.
type Kernel struct {
	a00, a01 float64
	a10, a11 float64
}

// NewKernel captures the effective transition matrix, which must be 2×2.
func NewKernel(a mat.Matrix) (*Kernel, error) {
	if r, c := a.Dims(); r != StateDim || c != StateDim {
		return nil, fmt.Errorf("%w: transition matrix is %dx%d, want %dx%d", ErrShapeMismatch, r, c, StateDim, StateDim)
	}
	return &Kernel{
		a00: a.At(0, 0), a01: a.At(0, 1),
		a10: a.At(1, 0), a11: a.At(1, 1),
	}, nil
}

// Matrix returns a copy of Ã.
func (k *Kernel) Matrix() *mat.Dense {
	return mat.NewDense(StateDim, StateDim, []float64{k.a00, k.a01, k.a10, k.a11})
}

// Step fills in the full trajectory of every trial in v. Step 0 is set to
// x0 (zero vector when nil); each later step gets a fresh draw from noise.
// Nothing outside v is read or written.
func (k *Kernel) Step(v TrialView, x0 State, noise Noise) error {
	x, err := initial(x0)
	if err != nil {
		return err
	}
	steps := v.Steps()
	if steps < 1 {
		return nil
	}

	var w [StateDim]float64
	for n := v.r.Lo; n < v.r.Hi; n++ {
		traj := v.Trial(n)
		traj[0], traj[1] = x[0], x[1]
		for t := 1; t < steps; t++ {
			p0, p1 := traj[2*t-2], traj[2*t-1]
			noise.Draw(w[:])
			traj[2*t] = k.a00*p0 + k.a01*p1 + w[0]
			traj[2*t+1] = k.a10*p0 + k.a11*p1 + w[1]
		}
	}
	return nil
}

// StepRange is Step over the trials r of b, after checking r is in bounds.
func (k *Kernel) StepRange(b *Buffer, r Range, x0 State, noise Noise) error {
	v, err := b.View(r)
	if err != nil {
		return err
	}
	return k.Step(v, x0, noise)
}
