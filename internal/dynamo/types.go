package dynamo

import (
	"fmt"
	"math"
)

// StateDim is the number of components of every state vector.
const StateDim = 2

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Finite reports whether no component is NaN or infinite.
func (s State) Finite() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// initial returns the initial condition to use for a run. A nil state
// means the zero vector.
func initial(x0 State) (State, error) {
	if x0 == nil {
		return make(State, StateDim), nil
	}
	if len(x0) != StateDim {
		return nil, fmt.Errorf("%w: initial condition has %d components, want %d", ErrShapeMismatch, len(x0), StateDim)
	}
	if !x0.Finite() {
		return nil, fmt.Errorf("%w: %v", ErrNonFinite, x0)
	}
	return x0.Clone(), nil
}

// Range is a half-open interval [Lo, Hi) of trial indices.
type Range struct {
	Lo, Hi int
}

func (r Range) Len() int {
	if r.Hi < r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

func (r Range) Contains(n int) bool { return n >= r.Lo && n < r.Hi }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Lo, r.Hi) }
