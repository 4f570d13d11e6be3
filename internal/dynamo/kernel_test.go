package dynamo_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/mcsim/internal/analysis"
	"github.com/san-kum/mcsim/internal/compute"
	"github.com/san-kum/mcsim/internal/control"
	"github.com/san-kum/mcsim/internal/dynamo"
)

func drivers(k *dynamo.Kernel, noise dynamo.NoiseFactory, workers int) []dynamo.Driver {
	pool, err := compute.NewPool(workers)
	Expect(err).NotTo(HaveOccurred())
	return []dynamo.Driver{
		dynamo.NewSerial(k, noise),
		dynamo.NewParallel(k, noise, pool).WithMinChunk(1),
		dynamo.NewShared(k, noise, pool),
	}
}

var _ = Describe("Kernel", func() {
	var (
		ctx    context.Context
		closed *mat.Dense
		kernel *dynamo.Kernel
	)

	BeforeEach(func() {
		ctx = context.Background()
		closed = control.NewTutorialSystem().ClosedLoop()

		var err error
		kernel, err = dynamo.NewKernel(closed)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a transition matrix that is not 2x2", func() {
		_, err := dynamo.NewKernel(mat.NewDense(3, 3, nil))
		Expect(err).To(MatchError(dynamo.ErrShapeMismatch))
	})

	It("round-trips the transition matrix", func() {
		Expect(mat.Equal(kernel.Matrix(), closed)).To(BeTrue())
	})

	Context("without noise", func() {
		It("follows x[k+1] = Ã·x[k] identically in every trial for every strategy", func() {
			want := make([]*mat.VecDense, 5)
			want[0] = mat.NewVecDense(2, []float64{1, 0})
			for k := 1; k < 5; k++ {
				want[k] = mat.NewVecDense(2, nil)
				want[k].MulVec(closed, want[k-1])
			}

			for _, d := range drivers(kernel, dynamo.FixedNoise(dynamo.ZeroNoise{}), 2) {
				buf, err := dynamo.NewBuffer(5, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(d.Run(ctx, buf, dynamo.State{1, 0})).To(Succeed(), d.Name())

				for n := 0; n < 3; n++ {
					for k := 0; k < 5; k++ {
						for c := 0; c < 2; c++ {
							Expect(buf.At(c, k, n)).To(BeNumerically("~", want[k].AtVec(c), 1e-12),
								"%s: component %d step %d trial %d", d.Name(), c, k, n)
						}
					}
				}
			}
		})

		It("defaults a nil initial condition to the origin", func() {
			buf, _ := dynamo.NewBuffer(4, 2)
			for i := range buf.Data() {
				buf.Data()[i] = math.NaN()
			}
			d := dynamo.NewSerial(kernel, dynamo.FixedNoise(dynamo.ZeroNoise{}))
			Expect(d.Run(ctx, buf, nil)).To(Succeed())
			for _, v := range buf.Data() {
				Expect(v).To(BeZero())
			}
		})
	})

	Context("edge cases", func() {
		It("is a no-op for zero steps", func() {
			buf, _ := dynamo.NewBuffer(0, 4)
			for _, d := range drivers(kernel, dynamo.SeededGaussian(1), 2) {
				Expect(d.Run(ctx, buf, dynamo.State{1, 1})).To(Succeed())
			}
		})

		It("writes only the initial condition for a single step", func() {
			buf, _ := dynamo.NewBuffer(1, 3)
			Expect(kernel.StepRange(buf, buf.Full(), dynamo.State{2, 3}, dynamo.NewGaussian(9))).To(Succeed())
			for n := 0; n < 3; n++ {
				Expect(buf.State(0, n)).To(Equal(dynamo.State{2, 3}))
			}
		})

		It("rejects an initial condition of the wrong size", func() {
			buf, _ := dynamo.NewBuffer(3, 4)
			for _, d := range drivers(kernel, dynamo.SeededGaussian(1), 2) {
				Expect(d.Run(ctx, buf, dynamo.State{1, 2, 3})).To(MatchError(dynamo.ErrShapeMismatch), d.Name())
			}
		})

		It("rejects a trial range outside the buffer", func() {
			buf, _ := dynamo.NewBuffer(3, 4)
			err := kernel.StepRange(buf, dynamo.Range{Lo: 2, Hi: 5}, nil, dynamo.ZeroNoise{})
			Expect(err).To(MatchError(dynamo.ErrOutOfRange))
		})

		It("never touches trials outside the requested range", func() {
			buf, _ := dynamo.NewBuffer(6, 8)
			for i := range buf.Data() {
				buf.Data()[i] = math.NaN()
			}
			Expect(kernel.StepRange(buf, dynamo.Range{Lo: 3, Hi: 5}, dynamo.State{1, 0}, dynamo.NewGaussian(3))).To(Succeed())

			for n := 0; n < 8; n++ {
				inside := n == 3 || n == 4
				for _, v := range buf.Trial(n) {
					Expect(math.IsNaN(v)).To(Equal(!inside), "trial %d", n)
				}
			}
		})
	})

	Context("with Gaussian noise", func() {
		const (
			steps  = 30
			trials = 4000
		)
		x0 := dynamo.State{1, 0}

		It("starts every trial at the initial condition for every strategy", func() {
			for _, d := range drivers(kernel, dynamo.SeededGaussian(11), 4) {
				buf, _ := dynamo.NewBuffer(steps, 50)
				Expect(d.Run(ctx, buf, x0)).To(Succeed())
				for n := 0; n < 50; n++ {
					Expect(buf.State(0, n)).To(Equal(x0), "%s trial %d", d.Name(), n)
				}
			}
		})

		It("draws residuals x[t] - Ã·x[t-1] from N(0, I)", func() {
			buf, _ := dynamo.NewBuffer(50, 1000)
			pool, _ := compute.NewPool(4)
			Expect(dynamo.NewShared(kernel, dynamo.SeededGaussian(5), pool).Run(ctx, buf, x0)).To(Succeed())

			var r0, r1 []float64
			for n := 0; n < buf.Trials(); n++ {
				for t := 1; t < buf.Steps(); t++ {
					prev := mat.NewVecDense(2, buf.State(t-1, n))
					var pred mat.VecDense
					pred.MulVec(closed, prev)
					r0 = append(r0, buf.At(0, t, n)-pred.AtVec(0))
					r1 = append(r1, buf.At(1, t, n)-pred.AtVec(1))
				}
			}

			for _, r := range [][]float64{r0, r1} {
				mean, variance := stat.MeanVariance(r, nil)
				Expect(mean).To(BeNumerically("~", 0, 0.03))
				Expect(variance).To(BeNumerically("~", 1, 0.04))
			}
			Expect(stat.Correlation(r0, r1, nil)).To(BeNumerically("~", 0, 0.03))
		})

		It("gives every strategy the exact moments within sampling error", func() {
			means, covs := analysis.ExpectedMoments(closed, x0, steps)

			for _, d := range drivers(kernel, dynamo.SeededGaussian(2024), 4) {
				buf, _ := dynamo.NewBuffer(steps, trials)
				Expect(d.Run(ctx, buf, x0)).To(Succeed())
				sum := analysis.Summarize(buf)

				for t := 1; t < steps; t++ {
					for c := 0; c < 2; c++ {
						v := covs[t].At(c, c)
						meanTol := 6 * math.Sqrt(v/trials)
						varTol := 6 * v * math.Sqrt(2.0/(trials-1))
						Expect(sum[t].Mean[c]).To(BeNumerically("~", means[t].AtVec(c), meanTol),
							"%s mean step %d component %d", d.Name(), t, c)
						Expect(sum[t].Var[c]).To(BeNumerically("~", v, varTol),
							"%s var step %d component %d", d.Name(), t, c)
					}
				}
			}
		})

		It("reproduces the same buffer for the same seed and worker count", func() {
			first := drivers(kernel, dynamo.SeededGaussian(77), 3)
			second := drivers(kernel, dynamo.SeededGaussian(77), 3)
			for i := range first {
				a, _ := dynamo.NewBuffer(10, 100)
				b, _ := dynamo.NewBuffer(10, 100)
				Expect(first[i].Run(ctx, a, x0)).To(Succeed())
				Expect(second[i].Run(ctx, b, x0)).To(Succeed())
				Expect(a.Data()).To(Equal(b.Data()), first[i].Name())
			}
		})
	})

	Context("when a worker fails", func() {
		It("aborts the run with ErrDispatch", func() {
			failing := func(task int) dynamo.Noise {
				if task == 1 {
					return dynamo.NoiseFunc(func([]float64) { panic("noise source exhausted") })
				}
				return dynamo.ZeroNoise{}
			}

			pool, _ := compute.NewPool(3)
			buf, _ := dynamo.NewBuffer(5, 30)

			err := dynamo.NewShared(kernel, failing, pool).Run(ctx, buf, dynamo.State{1, 1})
			Expect(err).To(MatchError(dynamo.ErrDispatch))
			Expect(err).To(MatchError(compute.ErrPanic))

			err = dynamo.NewParallel(kernel, failing, pool).WithMinChunk(1).Run(ctx, buf, dynamo.State{1, 1})
			Expect(err).To(MatchError(dynamo.ErrDispatch))
		})
	})
})
