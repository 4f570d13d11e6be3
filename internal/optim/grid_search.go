package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/mcsim/internal/config"
	"github.com/san-kum/mcsim/internal/control"
	"github.com/san-kum/mcsim/internal/experiment"
)

var ErrNoCandidate = errors.New("optim: no parameter combination could be evaluated")

// Objective scores a run; lower is better.
type Objective func(res *experiment.Result) float64

// TerminalVariance is the summed per-component variance at the last step.
func TerminalVariance(res *experiment.Result) float64 {
	m := res.Summary.Terminal()
	return m.Var[0] + m.Var[1]
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search evaluates every combination of the grid. Combinations whose
// experiment cannot be built or run are skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	objective Objective,
) (map[string]float64, float64, error) {

	best := math.Inf(1)
	var bestParams map[string]float64

	g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, objective, &best, &bestParams)

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) {
	if ctx.Err() != nil {
		return
	}

	if depth == len(g.paramNames) {
		exp, err := buildExperiment(current)
		if err != nil {
			return
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return
		}

		val := objective(result)
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(ctx, depth+1, newParams, buildExperiment, objective, best, bestParams)
	}
}

// GainSweep searches the two feedback gains k1, k2 of base for the
// smallest terminal variance. Gains that leave the closed loop unstable
// are skipped.
func GainSweep(ctx context.Context, base *config.Config, k1, k2 []float64, opts ...experiment.Option) (map[string]float64, float64, error) {
	g := NewGridSearch([]string{"k1", "k2"}, [][]float64{k1, k2})

	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		cfg.SetGain(params["k1"], params["k2"])

		sys, err := cfg.BuildSystem()
		if err != nil {
			return nil, err
		}
		if !control.IsStable(sys.ClosedLoop()) {
			return nil, fmt.Errorf("optim: gain (%g, %g) is unstable", params["k1"], params["k2"])
		}
		return experiment.New(cfg, opts...)
	}

	return g.Search(ctx, build, TerminalVariance)
}
