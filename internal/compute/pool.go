package compute

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoWorkers is returned for a worker count below one.
	ErrNoWorkers = errors.New("compute: worker count must be positive")
	ErrPanic     = errors.New("compute: task panicked")
)

// Task is one unit of work handed to the pool.
type Task func(ctx context.Context) error

// Pool is a bounded set of workers. It carries no goroutines of its own;
// each Dispatch runs its tasks on at most Workers goroutines.
type Pool struct {
	workers int
}

func NewPool(workers int) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoWorkers, workers)
	}
	return &Pool{workers: workers}, nil
}

// NewCPUPool sizes the pool to the number of logical CPUs.
func NewCPUPool() *Pool {
	return &Pool{workers: DefaultWorkers()}
}

func DefaultWorkers() int { return runtime.NumCPU() }

func (p *Pool) Workers() int { return p.workers }

// Dispatch runs every task and waits for all of them. The first error
// cancels the context passed to tasks that have not started yet and is
// returned once every started task has finished.
func (p *Pool) Dispatch(ctx context.Context, tasks []Task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, task := range tasks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: task %d: %v", ErrPanic, i, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			return task(gctx)
		})
	}

	return g.Wait()
}
