package dynamo

import (
	"fmt"
	"math"
	"sort"
)

// Buffer holds N trajectories of T steps of a two-component state.
//
// Storage is column-major over the logical shape (2, T, N): the component
// index varies fastest, then the step, then the trial. Element (d, t, n)
// lives at d + 2*(t + T*n), so every trial is one contiguous block.
type Buffer struct {
	data   []float64
	steps  int
	trials int
}

// DataLen is the number of values in a buffer of shape (2, steps, trials).
// It fails for negative shapes and for shapes whose size overflows int.
func DataLen(steps, trials int) (int, error) {
	if steps < 0 || trials < 0 {
		return 0, fmt.Errorf("%w: negative shape (2, %d, %d)", ErrShapeMismatch, steps, trials)
	}
	if steps == 0 || trials == 0 {
		return 0, nil
	}
	if steps > math.MaxInt/StateDim/trials {
		return 0, fmt.Errorf("%w: shape (2, %d, %d) is too large", ErrShapeMismatch, steps, trials)
	}
	return StateDim * steps * trials, nil
}

func NewBuffer(steps, trials int) (*Buffer, error) {
	n, err := DataLen(steps, trials)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		data:   make([]float64, n),
		steps:  steps,
		trials: trials,
	}, nil
}

// FromData wraps an existing slice laid out as described on Buffer.
// The slice is not copied.
func FromData(data []float64, steps, trials int) (*Buffer, error) {
	want, err := DataLen(steps, trials)
	if err != nil {
		return nil, err
	}
	if len(data) != want {
		return nil, fmt.Errorf("%w: %d values for shape (2, %d, %d), want %d", ErrShapeMismatch, len(data), steps, trials, want)
	}
	return &Buffer{data: data, steps: steps, trials: trials}, nil
}

func (b *Buffer) Steps() int  { return b.steps }
func (b *Buffer) Trials() int { return b.trials }

// Shape returns the logical (components, steps, trials) shape.
func (b *Buffer) Shape() (int, int, int) { return StateDim, b.steps, b.trials }

// Data exposes the backing slice in storage order.
func (b *Buffer) Data() []float64 { return b.data }

func (b *Buffer) index(d, t, n int) int { return d + StateDim*(t+b.steps*n) }

func (b *Buffer) At(d, t, n int) float64 { return b.data[b.index(d, t, n)] }

func (b *Buffer) Set(d, t, n int, v float64) { b.data[b.index(d, t, n)] = v }

// State returns a copy of the state of trial n at step t.
func (b *Buffer) State(t, n int) State {
	i := b.index(0, t, n)
	return State{b.data[i], b.data[i+1]}
}

// Trial returns the trajectory block of trial n, 2*T values long.
func (b *Buffer) Trial(n int) []float64 {
	span := StateDim * b.steps
	return b.data[span*n : span*(n+1) : span*(n+1)]
}

func (b *Buffer) Full() Range { return Range{Lo: 0, Hi: b.trials} }

// View returns a mutable view over the trials in r.
func (b *Buffer) View(r Range) (TrialView, error) {
	if r.Lo < 0 || r.Hi > b.trials || r.Lo > r.Hi {
		return TrialView{}, fmt.Errorf("%w: %s not within [0,%d)", ErrOutOfRange, r, b.trials)
	}
	span := StateDim * b.steps
	return TrialView{
		r:     r,
		steps: b.steps,
		data:  b.data[span*r.Lo : span*r.Hi : span*r.Hi],
	}, nil
}

// Split cuts one view per range. The ranges must be pairwise disjoint;
// that is what lets the views be written concurrently without locks.
func (b *Buffer) Split(parts []Range) ([]TrialView, error) {
	sorted := make([]Range, 0, len(parts))
	for _, r := range parts {
		if r.Len() > 0 {
			sorted = append(sorted, r)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lo < sorted[j].Lo })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Lo < sorted[i-1].Hi {
			return nil, fmt.Errorf("%w: %s and %s", ErrOverlap, sorted[i-1], sorted[i])
		}
	}

	views := make([]TrialView, len(parts))
	for i, r := range parts {
		v, err := b.View(r)
		if err != nil {
			return nil, err
		}
		views[i] = v
	}
	return views, nil
}

// TrialView is a window over a contiguous trial range of a Buffer.
// Trial indices passed to its methods are absolute buffer indices.
type TrialView struct {
	r     Range
	steps int
	data  []float64
}

func (v TrialView) Range() Range { return v.r }
func (v TrialView) Steps() int   { return v.steps }

// Trial returns the trajectory block of trial n, which must lie in the
// view's range.
func (v TrialView) Trial(n int) []float64 {
	span := StateDim * v.steps
	off := n - v.r.Lo
	return v.data[span*off : span*(off+1) : span*(off+1)]
}
