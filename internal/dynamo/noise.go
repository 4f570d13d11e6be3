package dynamo

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Noise fills dst with independent draws of the process disturbance.
// Implementations are not required to be safe for concurrent use; each
// task gets its own source from a NoiseFactory.
type Noise interface {
	Draw(dst []float64)
}

// NoiseFunc adapts a function to Noise.
type NoiseFunc func(dst []float64)

func (f NoiseFunc) Draw(dst []float64) { f(dst) }

// Gaussian draws from the standard normal distribution.
type Gaussian struct {
	dist distuv.Normal
}

func NewGaussian(seed uint64) *Gaussian {
	return &Gaussian{
		dist: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}
}

func (g *Gaussian) Draw(dst []float64) {
	for i := range dst {
		dst[i] = g.dist.Rand()
	}
}

// ZeroNoise turns the simulation into the deterministic recurrence
// x[t] = Ã·x[t-1].
type ZeroNoise struct{}

func (ZeroNoise) Draw(dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
}

// NoiseFactory hands out the noise source for dispatched task number task.
type NoiseFactory func(task int) Noise

// SeededGaussian gives task i its own Gaussian stream seeded seed+i.
func SeededGaussian(seed uint64) NoiseFactory {
	return func(task int) Noise {
		return NewGaussian(seed + uint64(task))
	}
}

// FixedNoise returns the same source for every task. Only use it with
// sources that are safe for concurrent use, such as ZeroNoise.
func FixedNoise(n Noise) NoiseFactory {
	return func(int) Noise { return n }
}
