package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/mcsim/internal/dynamo"
)

// Recorder counts driver runs and trials and times each run, labelled by
// strategy.
type Recorder struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	trials   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcsim_runs_total",
				Help: "Total number of driver runs",
			},
			[]string{"strategy"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcsim_run_failures_total",
				Help: "Total number of driver runs that returned an error",
			},
			[]string{"strategy"},
		),
		trials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcsim_trials_total",
				Help: "Total number of trajectories simulated",
			},
			[]string{"strategy"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcsim_run_duration_seconds",
				Help:    "Wall-clock duration of driver runs",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"strategy"},
		),
	}
	reg.MustRegister(r.runs, r.failures, r.trials, r.duration)
	return r
}

func (r *Recorder) Observe(strategy string, trials int, elapsed time.Duration, err error) {
	r.runs.WithLabelValues(strategy).Inc()
	r.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if err != nil {
		r.failures.WithLabelValues(strategy).Inc()
		return
	}
	r.trials.WithLabelValues(strategy).Add(float64(trials))
}

// Instrument wraps d so every Run is recorded.
func Instrument(d dynamo.Driver, r *Recorder) dynamo.Driver {
	return &instrumented{Driver: d, rec: r}
}

type instrumented struct {
	dynamo.Driver
	rec *Recorder
}

func (i *instrumented) Run(ctx context.Context, b *dynamo.Buffer, x0 dynamo.State) error {
	start := time.Now()
	err := i.Driver.Run(ctx, b, x0)
	i.rec.Observe(i.Name(), b.Trials(), time.Since(start), err)
	return err
}
