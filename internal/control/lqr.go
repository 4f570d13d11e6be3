package control

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// System is the open-loop pair x[t+1] = A·x[t] + B·u[t] together with the
// static feedback gain of u = -K·x.
type System struct {
	A *mat.Dense
	B *mat.Dense
	K *mat.Dense
}

func NewSystem(a, b, k *mat.Dense) (*System, error) {
	if a == nil || b == nil || k == nil {
		return nil, fmt.Errorf("control: A, B and K must all be set")
	}
	n, c := a.Dims()
	if n != c {
		return nil, fmt.Errorf("control: A must be square, got %dx%d", n, c)
	}
	br, m := b.Dims()
	if br != n {
		return nil, fmt.Errorf("control: B has %d rows, want %d", br, n)
	}
	if kr, kc := k.Dims(); kr != m || kc != n {
		return nil, fmt.Errorf("control: K is %dx%d, want %dx%d", kr, kc, m, n)
	}
	return &System{A: a, B: b, K: k}, nil
}

// ClosedLoop folds the feedback law into the state matrix: Ã = A − B·K.
func (s *System) ClosedLoop() *mat.Dense {
	var bk mat.Dense
	bk.Mul(s.B, s.K)
	var out mat.Dense
	out.Sub(s.A, &bk)
	return &out
}

// Input is the feedback command u = -K·(x - target) at state x. A nil
// target regulates to the origin.
func (s *System) Input(x, target []float64) ([]float64, error) {
	_, n := s.K.Dims()
	if len(x) != n || (target != nil && len(target) != n) {
		return nil, fmt.Errorf("control: state has %d components, want %d", len(x), n)
	}
	e := mat.NewVecDense(n, append([]float64(nil), x...))
	if target != nil {
		e.SubVec(e, mat.NewVecDense(n, target))
	}
	var u mat.VecDense
	u.MulVec(s.K, e)
	u.ScaleVec(-1, &u)
	return u.RawVector().Data, nil
}

// SpectralRadius is the largest eigenvalue modulus of a square matrix.
func SpectralRadius(a mat.Matrix) (float64, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenNone); !ok {
		return 0, fmt.Errorf("control: eigen decomposition failed")
	}
	rho := 0.0
	for _, v := range eig.Values(nil) {
		if m := cmplx.Abs(v); m > rho {
			rho = m
		}
	}
	return rho, nil
}

// IsStable reports whether the discrete-time matrix a is Schur stable.
func IsStable(a mat.Matrix) bool {
	rho, err := SpectralRadius(a)
	return err == nil && rho < 1
}

var (
	tutorialA = []float64{
		1.0, 0.1,
		0.0, 1.0,
	}
	tutorialB = []float64{
		0.0,
		0.1,
	}
	tutorialK = []float64{1.0, 1.5}
)

// NewTutorialSystem is a sampled double integrator, dt = 0.1, with a gain
// that places the closed-loop poles at 0.925 ± 0.0663i.
func NewTutorialSystem() *System {
	return &System{
		A: mat.NewDense(2, 2, append([]float64(nil), tutorialA...)),
		B: mat.NewDense(2, 1, append([]float64(nil), tutorialB...)),
		K: mat.NewDense(1, 2, append([]float64(nil), tutorialK...)),
	}
}
