package dynamo

import (
	"context"
	"fmt"

	"github.com/san-kum/mcsim/internal/compute"
)

// Strategy names accepted by the drivers.
const (
	StrategySerial   = "serial"
	StrategyParallel = "parallel"
	StrategyShared   = "shared"
)

// DefaultMinChunk is the smallest chunk the parallel driver hands to a
// worker; smaller runs stay on the calling goroutine.
const DefaultMinChunk = 8

// Driver fills every trial of a buffer. Drivers hold no state between
// calls and return only once all trials are written or the run failed.
type Driver interface {
	Name() string
	Run(ctx context.Context, b *Buffer, x0 State) error
}

// Serial steps every trial on the calling goroutine.
type Serial struct {
	kernel *Kernel
	noise  NoiseFactory
}

func NewSerial(k *Kernel, noise NoiseFactory) *Serial {
	return &Serial{kernel: k, noise: noise}
}

func (s *Serial) Name() string { return StrategySerial }

func (s *Serial) Run(ctx context.Context, b *Buffer, x0 State) error {
	return s.kernel.StepRange(b, b.Full(), x0, s.noise(0))
}

// Parallel chunks the trials by the pool size and lets the pool schedule
// the chunks.
type Parallel struct {
	kernel   *Kernel
	noise    NoiseFactory
	pool     *compute.Pool
	minChunk int
}

func NewParallel(k *Kernel, noise NoiseFactory, pool *compute.Pool) *Parallel {
	return &Parallel{kernel: k, noise: noise, pool: pool, minChunk: DefaultMinChunk}
}

// WithMinChunk overrides DefaultMinChunk.
func (p *Parallel) WithMinChunk(n int) *Parallel {
	if n < 1 {
		n = 1
	}
	p.minChunk = n
	return p
}

func (p *Parallel) Name() string { return StrategyParallel }

func (p *Parallel) Run(ctx context.Context, b *Buffer, x0 State) error {
	n := b.Trials()
	workers := p.pool.Workers()
	if n <= p.minChunk || workers <= 1 {
		return p.kernel.StepRange(b, b.Full(), x0, p.noise(0))
	}

	chunk := (n + workers - 1) / workers
	if chunk < p.minChunk {
		chunk = p.minChunk
	}
	return dispatch(ctx, p.pool, p.kernel, p.noise, b, Chunks(n, chunk), x0)
}

// Shared partitions the trials into exactly one balanced range per worker
// and runs one task per worker against the shared buffer.
type Shared struct {
	kernel *Kernel
	noise  NoiseFactory
	pool   *compute.Pool
}

func NewShared(k *Kernel, noise NoiseFactory, pool *compute.Pool) *Shared {
	return &Shared{kernel: k, noise: noise, pool: pool}
}

func (s *Shared) Name() string { return StrategyShared }

func (s *Shared) Run(ctx context.Context, b *Buffer, x0 State) error {
	parts, err := Partition(b.Trials(), s.pool.Workers())
	if err != nil {
		return err
	}
	return dispatch(ctx, s.pool, s.kernel, s.noise, b, parts, x0)
}

func dispatch(ctx context.Context, pool *compute.Pool, k *Kernel, noise NoiseFactory, b *Buffer, parts []Range, x0 State) error {
	if _, err := initial(x0); err != nil {
		return err
	}
	views, err := b.Split(parts)
	if err != nil {
		return err
	}

	tasks := make([]compute.Task, len(views))
	for i, v := range views {
		tasks[i] = func(context.Context) error {
			if err := k.Step(v, x0, noise(i)); err != nil {
				return &TaskError{Task: i, Range: v.Range(), Wrapped: err}
			}
			return nil
		}
	}

	if err := pool.Dispatch(ctx, tasks); err != nil {
		return fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	return nil
}
