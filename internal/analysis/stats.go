package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/mcsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Moments holds the per-component mean and unbiased variance across trials
// at one time step.
type Moments struct {
	Mean [dynamo.StateDim]float64
	Var  [dynamo.StateDim]float64
}

// Summary is one Moments entry per time step.
type Summary []Moments

// Terminal returns the moments of the last step.
func (s Summary) Terminal() Moments {
	if len(s) == 0 {
		return Moments{}
	}
	return s[len(s)-1]
}

// Series extracts the mean (or variance) of component d over time.
func (s Summary) Series(d int, variance bool) []float64 {
	out := make([]float64, len(s))
	for t, m := range s {
		if variance {
			out[t] = m.Var[d]
		} else {
			out[t] = m.Mean[d]
		}
	}
	return out
}

// Summarize computes the sample moments at every step. With fewer than two
// trials the variance is reported as zero.
func Summarize(b *dynamo.Buffer) Summary {
	steps, trials := b.Steps(), b.Trials()
	out := make(Summary, steps)
	col := make([]float64, trials)

	for t := 0; t < steps; t++ {
		for d := 0; d < dynamo.StateDim; d++ {
			for n := 0; n < trials; n++ {
				col[n] = b.At(d, t, n)
			}
			switch trials {
			case 0:
			case 1:
				out[t].Mean[d] = col[0]
			default:
				out[t].Mean[d], out[t].Var[d] = stat.MeanVariance(col, nil)
			}
		}
	}
	return out
}

// MaxDeviation returns the largest absolute difference in mean and in
// variance between two summaries of equal length.
func MaxDeviation(a, b Summary) (dMean, dVar float64, err error) {
	if len(a) != len(b) {
		return 0, 0, fmt.Errorf("analysis: summaries have %d and %d steps", len(a), len(b))
	}
	for t := range a {
		for d := 0; d < dynamo.StateDim; d++ {
			dMean = math.Max(dMean, math.Abs(a[t].Mean[d]-b[t].Mean[d]))
			dVar = math.Max(dVar, math.Abs(a[t].Var[d]-b[t].Var[d]))
		}
	}
	return dMean, dVar, nil
}

// Accumulator pools raw moments over successive buffers of the same step
// count.
type Accumulator struct {
	steps int
	count float64
	sum   []float64
	sumSq []float64
}

func NewAccumulator(steps int) *Accumulator {
	n := dynamo.StateDim * steps
	return &Accumulator{
		steps: steps,
		sum:   make([]float64, n),
		sumSq: make([]float64, n),
	}
}

func (a *Accumulator) Add(b *dynamo.Buffer) error {
	if b.Steps() != a.steps {
		return fmt.Errorf("%w: buffer has %d steps, accumulator %d", dynamo.ErrShapeMismatch, b.Steps(), a.steps)
	}
	sq := make([]float64, dynamo.StateDim*a.steps)
	for n := 0; n < b.Trials(); n++ {
		traj := b.Trial(n)
		floats.Add(a.sum, traj)
		floats.MulTo(sq, traj, traj)
		floats.Add(a.sumSq, sq)
	}
	a.count += float64(b.Trials())
	return nil
}

func (a *Accumulator) Count() int { return int(a.count) }

func (a *Accumulator) Summary() Summary {
	out := make(Summary, a.steps)
	if a.count == 0 {
		return out
	}
	for t := 0; t < a.steps; t++ {
		for d := 0; d < dynamo.StateDim; d++ {
			i := d + dynamo.StateDim*t
			mean := a.sum[i] / a.count
			out[t].Mean[d] = mean
			if a.count > 1 {
				v := (a.sumSq[i] - a.count*mean*mean) / (a.count - 1)
				out[t].Var[d] = math.Max(v, 0)
			}
		}
	}
	return out
}

// ExpectedMoments returns the exact mean Ã^t·x0 and covariance
// P[t] = Ã·P[t-1]·Ãᵀ + I, P[0] = 0, of the recurrence for steps 0..steps-1.
func ExpectedMoments(a mat.Matrix, x0 dynamo.State, steps int) ([]*mat.VecDense, []*mat.SymDense) {
	means := make([]*mat.VecDense, steps)
	covs := make([]*mat.SymDense, steps)
	if steps == 0 {
		return means, covs
	}

	x := mat.NewVecDense(dynamo.StateDim, nil)
	if x0 != nil {
		x.SetVec(0, x0[0])
		x.SetVec(1, x0[1])
	}
	p := mat.NewSymDense(dynamo.StateDim, nil)
	means[0], covs[0] = x, p

	for t := 1; t < steps; t++ {
		next := mat.NewVecDense(dynamo.StateDim, nil)
		next.MulVec(a, means[t-1])
		means[t] = next
		covs[t] = propagate(a, covs[t-1])
	}
	return means, covs
}

func propagate(a mat.Matrix, p *mat.SymDense) *mat.SymDense {
	var ap, apat mat.Dense
	ap.Mul(a, p)
	apat.Mul(&ap, a.T())
	out := mat.NewSymDense(dynamo.StateDim, nil)
	for i := 0; i < dynamo.StateDim; i++ {
		for j := i; j < dynamo.StateDim; j++ {
			v := (apat.At(i, j) + apat.At(j, i)) / 2
			if i == j {
				v++
			}
			out.SetSym(i, j, v)
		}
	}
	return out
}

// StationaryCovariance iterates P = Ã·P·Ãᵀ + I to a fixed point. It fails
// when Ã is not stable enough to converge within maxIter iterations.
func StationaryCovariance(a mat.Matrix, tol float64, maxIter int) (*mat.SymDense, error) {
	p := mat.NewSymDense(dynamo.StateDim, nil)
	for i := 0; i < maxIter; i++ {
		next := propagate(a, p)
		var diff mat.Dense
		diff.Sub(next, p)
		p = next
		if mat.Norm(&diff, math.Inf(1)) < tol {
			return p, nil
		}
	}
	return nil, fmt.Errorf("analysis: stationary covariance did not converge in %d iterations", maxIter)
}
