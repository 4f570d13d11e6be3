package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/mcsim/internal/analysis"
	"github.com/san-kum/mcsim/internal/experiment"
	"github.com/san-kum/mcsim/internal/viz"
)

// Runner produces one batch of trajectories per call.
type Runner interface {
	RunStrategy(ctx context.Context, strategy string, seed uint64) (*experiment.Result, error)
}

type batchMsg struct {
	batch int
	res   *experiment.Result
	err   error
}

// Model runs batches back to back and pools their moments, so the plotted
// mean and variance sharpen as trials accumulate.
type Model struct {
	ctx        context.Context
	runner     Runner
	strategy   string
	seed       uint64
	steps      int
	maxBatches int

	acc      *analysis.Accumulator
	batches  int
	elapsed  time.Duration
	variance bool
	paused   bool
	running  bool
	err      error
	width    int
}

func New(ctx context.Context, r Runner, strategy string, seed uint64, steps, maxBatches int) Model {
	return Model{
		ctx:        ctx,
		runner:     r,
		strategy:   strategy,
		seed:       seed,
		steps:      steps,
		maxBatches: maxBatches,
		acc:        analysis.NewAccumulator(steps),
		running:    true,
		width:      70,
	}
}

// Init starts the first batch, which New already marks as in flight.
func (m Model) Init() tea.Cmd {
	return m.batch()
}

func (m *Model) next() tea.Cmd {
	if m.paused || m.running || m.done() {
		return nil
	}
	m.running = true
	return m.batch()
}

func (m Model) batch() tea.Cmd {
	ctx, r, strategy, n := m.ctx, m.runner, m.strategy, m.batches
	seed := m.seed + uint64(n)*1_000_003
	return func() tea.Msg {
		res, err := r.RunStrategy(ctx, strategy, seed)
		return batchMsg{batch: n, res: res, err: err}
	}
}

func (m Model) done() bool {
	return m.err != nil || (m.maxBatches > 0 && m.batches >= m.maxBatches)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			cmd := m.next()
			return m, cmd
		case "v":
			m.variance = !m.variance
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case batchMsg:
		if msg.batch != m.batches {
			return m, nil
		}
		m.running = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if err := m.acc.Add(msg.res.Buffer); err != nil {
			m.err = err
			return m, nil
		}
		m.batches++
		m.elapsed += msg.res.Elapsed
		cmd := m.next()
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(viz.Title.Render("mcsim live · " + m.strategy))
	sb.WriteString("  ")
	switch {
	case m.err != nil:
		sb.WriteString(viz.StatusFailed.Render("failed"))
	case m.done():
		sb.WriteString(viz.StatusDone.Render("done"))
	case m.paused:
		sb.WriteString(viz.StatusDone.Render("paused"))
	default:
		sb.WriteString(viz.StatusRunning.Render("running"))
	}
	sb.WriteString("\n\n")

	sb.WriteString(viz.Metric("batches", fmt.Sprintf("%d", m.batches)))
	sb.WriteString("  ")
	sb.WriteString(viz.Metric("trials", fmt.Sprintf("%d", m.acc.Count())))
	sb.WriteString("  ")
	sb.WriteString(viz.Metric("sim time", m.elapsed.Round(time.Millisecond).String()))
	sb.WriteString("\n")
	if m.maxBatches > 0 {
		sb.WriteString(viz.ProgressBar(float64(m.batches)/float64(m.maxBatches), 40))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(viz.StatusFailed.Render(m.err.Error()))
		sb.WriteString("\n")
	} else if m.acc.Count() > 0 && m.steps > 0 {
		sum := m.acc.Summary()
		sb.WriteString(viz.PlotSummary(sum, m.variance, max(m.width-12, 20), 12))
		sb.WriteString("\n\n")
		term := sum.Terminal()
		sb.WriteString(viz.Metric("terminal var", fmt.Sprintf("%.4f / %.4f", term.Var[0], term.Var[1])))
		sb.WriteString("\n")
		sb.WriteString(viz.Sparkline(sum.Series(0, true), 40))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(viz.KeyHint.Render("space pause · v mean/variance · q quit"))
	return sb.String()
}

// Run starts the live view on the terminal and blocks until it exits.
func Run(ctx context.Context, r Runner, strategy string, seed uint64, steps, maxBatches int) error {
	p := tea.NewProgram(New(ctx, r, strategy, seed, steps, maxBatches), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
