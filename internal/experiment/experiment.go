package experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/san-kum/mcsim/internal/analysis"
	"github.com/san-kum/mcsim/internal/compute"
	"github.com/san-kum/mcsim/internal/config"
	"github.com/san-kum/mcsim/internal/control"
	"github.com/san-kum/mcsim/internal/dynamo"
	"github.com/san-kum/mcsim/internal/metrics"
	"github.com/san-kum/mcsim/internal/storage"
)

// Experiment binds a validated configuration to a kernel and a worker
// pool. It can be run any number of times; each run gets a fresh buffer.
type Experiment struct {
	cfg      *config.Config
	system   *control.System
	kernel   *dynamo.Kernel
	pool     *compute.Pool
	registry *Registry
	noise    func(seed uint64) dynamo.NoiseFactory
	logger   *slog.Logger
	recorder *metrics.Recorder
}

type Option func(*Experiment)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Experiment) { e.logger = logger }
}

func WithRecorder(r *metrics.Recorder) Option {
	return func(e *Experiment) { e.recorder = r }
}

func WithPool(p *compute.Pool) Option {
	return func(e *Experiment) { e.pool = p }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

// WithNoise replaces the Gaussian noise, e.g. with dynamo.ZeroNoise for a
// deterministic run.
func WithNoise(f func(seed uint64) dynamo.NoiseFactory) Option {
	return func(e *Experiment) { e.noise = f }
}

func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sys, err := cfg.BuildSystem()
	if err != nil {
		return nil, err
	}
	kernel, err := dynamo.NewKernel(sys.ClosedLoop())
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:      cfg.Clone(),
		system:   sys,
		kernel:   kernel,
		registry: NewRegistry(),
		noise:    dynamo.SeededGaussian,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.pool == nil {
		if cfg.Workers == 0 {
			e.pool = compute.NewCPUPool()
		} else if e.pool, err = compute.NewPool(cfg.Workers); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Experiment) Config() *config.Config  { return e.cfg }
func (e *Experiment) System() *control.System { return e.system }
func (e *Experiment) Kernel() *dynamo.Kernel  { return e.kernel }
func (e *Experiment) Workers() int            { return e.pool.Workers() }

type Result struct {
	Strategy string
	Workers  int
	Seed     uint64
	Buffer   *dynamo.Buffer
	Summary  analysis.Summary
	Elapsed  time.Duration
}

// Run uses the configured strategy and seed.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	return e.RunStrategy(ctx, e.cfg.Strategy, e.cfg.Seed)
}

func (e *Experiment) RunStrategy(ctx context.Context, strategy string, seed uint64) (*Result, error) {
	d, err := e.registry.Driver(strategy, e.kernel, e.noise(seed), e.pool)
	if err != nil {
		return nil, err
	}
	if e.recorder != nil {
		d = metrics.Instrument(d, e.recorder)
	}

	buf, err := dynamo.NewBuffer(e.cfg.Steps, e.cfg.Trials)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("run starting",
		"strategy", strategy,
		"workers", e.pool.Workers(),
		"steps", e.cfg.Steps,
		"trials", e.cfg.Trials,
		"seed", seed,
	)

	start := time.Now()
	if err := d.Run(ctx, buf, e.cfg.GetInitState()); err != nil {
		e.logger.Error("run failed", "strategy", strategy, "error", err)
		return nil, fmt.Errorf("experiment: %s run: %w", strategy, err)
	}
	elapsed := time.Since(start)

	e.logger.Info("run finished",
		"strategy", strategy,
		"trials", e.cfg.Trials,
		"elapsed", elapsed,
	)

	return &Result{
		Strategy: strategy,
		Workers:  e.pool.Workers(),
		Seed:     seed,
		Buffer:   buf,
		Summary:  analysis.Summarize(buf),
		Elapsed:  elapsed,
	}, nil
}

// Comparison is one strategy's run measured against the serial run.
type Comparison struct {
	Result  *Result
	MeanDev float64
	VarDev  float64
}

// Compare runs every registered strategy with the same seed and reports
// the largest per-step deviation of each from the serial summary.
func (e *Experiment) Compare(ctx context.Context, seed uint64) ([]Comparison, error) {
	base, err := e.RunStrategy(ctx, dynamo.StrategySerial, seed)
	if err != nil {
		return nil, err
	}

	out := []Comparison{{Result: base}}
	for _, name := range e.registry.Strategies() {
		if name == dynamo.StrategySerial {
			continue
		}
		res, err := e.RunStrategy(ctx, name, seed)
		if err != nil {
			return nil, err
		}
		dMean, dVar, err := analysis.MaxDeviation(base.Summary, res.Summary)
		if err != nil {
			return nil, err
		}
		out = append(out, Comparison{Result: res, MeanDev: dMean, VarDev: dVar})
	}
	return out, nil
}

// Metadata describes res for the run store.
func (e *Experiment) Metadata(res *Result) storage.RunMetadata {
	x0 := e.cfg.GetInitState()
	if x0 == nil {
		x0 = make(dynamo.State, dynamo.StateDim)
	}
	u, err := e.system.Input(x0, nil)
	if err != nil {
		e.logger.Warn("feedback input at x0", "error", err)
	}
	return storage.RunMetadata{
		Input:      u,
		Strategy:   res.Strategy,
		Workers:    res.Workers,
		Seed:       res.Seed,
		Steps:      e.cfg.Steps,
		Trials:     e.cfg.Trials,
		InitState:  e.cfg.GetInitState(),
		Gain:       e.system.K.RawMatrix().Data,
		Transition: e.kernel.Matrix().RawMatrix().Data,
		Elapsed:    res.Elapsed,
	}
}
