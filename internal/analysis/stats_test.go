package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/mcsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

func fill(t *testing.T, steps, trials int, f func(d, s, n int) float64) *dynamo.Buffer {
	t.Helper()
	b, err := dynamo.NewBuffer(steps, trials)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	for n := 0; n < trials; n++ {
		for s := 0; s < steps; s++ {
			for d := 0; d < dynamo.StateDim; d++ {
				b.Set(d, s, n, f(d, s, n))
			}
		}
	}
	return b
}

func TestSummarize(t *testing.T) {
	// component 0 at step s across trials 0..3 is s + n, component 1 is -n
	b := fill(t, 3, 4, func(d, s, n int) float64 {
		if d == 0 {
			return float64(s + n)
		}
		return -float64(n)
	})

	sum := Summarize(b)
	if len(sum) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(sum))
	}

	for s, m := range sum {
		if math.Abs(m.Mean[0]-(float64(s)+1.5)) > 1e-12 {
			t.Errorf("step %d: mean x1 = %f, want %f", s, m.Mean[0], float64(s)+1.5)
		}
		if math.Abs(m.Mean[1]+1.5) > 1e-12 {
			t.Errorf("step %d: mean x2 = %f, want -1.5", s, m.Mean[1])
		}
		// unbiased variance of {0,1,2,3}
		for d := 0; d < 2; d++ {
			if math.Abs(m.Var[d]-5.0/3.0) > 1e-12 {
				t.Errorf("step %d: var x%d = %f, want %f", s, d+1, m.Var[d], 5.0/3.0)
			}
		}
	}
}

func TestSummarizeSingleTrial(t *testing.T) {
	b := fill(t, 2, 1, func(d, s, n int) float64 { return float64(d + s) })
	sum := Summarize(b)
	if sum[1].Mean[1] != 2 || sum[1].Var[1] != 0 {
		t.Errorf("single trial: got %+v", sum[1])
	}
}

func TestAccumulatorMatchesSummarize(t *testing.T) {
	f := func(d, s, n int) float64 { return math.Sin(float64(7*n+3*s+d)) * float64(s+1) }
	whole := fill(t, 5, 10, f)
	first := fill(t, 5, 4, f)
	second := fill(t, 5, 6, func(d, s, n int) float64 { return f(d, s, n+4) })

	acc := NewAccumulator(5)
	if err := acc.Add(first); err != nil {
		t.Fatal(err)
	}
	if err := acc.Add(second); err != nil {
		t.Fatal(err)
	}
	if acc.Count() != 10 {
		t.Errorf("expected count 10, got %d", acc.Count())
	}

	dMean, dVar, err := MaxDeviation(acc.Summary(), Summarize(whole))
	if err != nil {
		t.Fatal(err)
	}
	if dMean > 1e-12 || dVar > 1e-9 {
		t.Errorf("accumulator deviates: mean %g var %g", dMean, dVar)
	}
}

func TestAccumulatorShapeMismatch(t *testing.T) {
	acc := NewAccumulator(5)
	b, _ := dynamo.NewBuffer(4, 2)
	if err := acc.Add(b); err == nil {
		t.Error("expected shape mismatch")
	}
}

func TestMaxDeviationLength(t *testing.T) {
	if _, _, err := MaxDeviation(make(Summary, 2), make(Summary, 3)); err == nil {
		t.Error("expected error for different lengths")
	}
}

func TestExpectedMoments(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{0.5, 0, 0, 0.5})
	means, covs := ExpectedMoments(a, dynamo.State{2, -4}, 3)

	wantMean := [][2]float64{{2, -4}, {1, -2}, {0.5, -1}}
	wantVar := []float64{0, 1, 1.25}

	for s := 0; s < 3; s++ {
		if means[s].AtVec(0) != wantMean[s][0] || means[s].AtVec(1) != wantMean[s][1] {
			t.Errorf("step %d: mean = %v, want %v", s, mat.Formatted(means[s].T()), wantMean[s])
		}
		if math.Abs(covs[s].At(0, 0)-wantVar[s]) > 1e-12 || math.Abs(covs[s].At(0, 1)) > 1e-12 {
			t.Errorf("step %d: cov = %v", s, mat.Formatted(covs[s]))
		}
	}
}

func TestStationaryCovariance(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{0.5, 0, 0, 0.5})
	p, err := StationaryCovariance(a, 1e-12, 1000)
	if err != nil {
		t.Fatalf("stationary: %v", err)
	}
	if math.Abs(p.At(0, 0)-4.0/3.0) > 1e-9 || math.Abs(p.At(1, 1)-4.0/3.0) > 1e-9 {
		t.Errorf("expected 4/3 I, got %v", mat.Formatted(p))
	}

	unstable := mat.NewDense(2, 2, []float64{1, 0.1, 0, 1})
	if _, err := StationaryCovariance(unstable, 1e-9, 200); err == nil {
		t.Error("expected divergence for open-loop matrix")
	}
}

func TestSeries(t *testing.T) {
	s := Summary{
		{Mean: [2]float64{1, 2}, Var: [2]float64{3, 4}},
		{Mean: [2]float64{5, 6}, Var: [2]float64{7, 8}},
	}
	if got := s.Series(1, false); got[0] != 2 || got[1] != 6 {
		t.Errorf("mean series = %v", got)
	}
	if got := s.Series(0, true); got[0] != 3 || got[1] != 7 {
		t.Errorf("var series = %v", got)
	}
	if s.Terminal().Var[1] != 8 {
		t.Errorf("terminal = %+v", s.Terminal())
	}
}
