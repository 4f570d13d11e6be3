package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/san-kum/mcsim/internal/analysis"
	"github.com/san-kum/mcsim/internal/config"
	"github.com/san-kum/mcsim/internal/control"
	"github.com/san-kum/mcsim/internal/dynamo"
	"github.com/san-kum/mcsim/internal/experiment"
	"github.com/san-kum/mcsim/internal/metrics"
	"github.com/san-kum/mcsim/internal/optim"
	"github.com/san-kum/mcsim/internal/storage"
	"github.com/san-kum/mcsim/internal/tui"
	"github.com/san-kum/mcsim/internal/viz"
)

var (
	dataDir     string
	verbose     bool
	configFile  string
	preset      string
	strategy    string
	steps       int
	trials      int
	workers     int
	seed        uint64
	initState   string
	noSave      bool
	metricsAddr string
	stride      int
	batches     int
	k1Grid      string
	k2Grid      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mcsim",
		Short:         "monte carlo simulation of a stochastic linear system under state feedback",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mcsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&strategy, "strategy", config.DefaultStrategy, "serial, parallel or shared")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	runCmd.Flags().IntVar(&stride, "stride", 10, "print every n-th step of the summary")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "run every strategy on the same configuration",
		Args:  cobra.NoArgs,
		RunE:  compareStrategies,
	}
	addRunFlags(compareCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot per-step mean and variance of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	partitionCmd := &cobra.Command{
		Use:   "partition [trials] [workers]",
		Short: "show the balanced trial partition",
		Args:  cobra.ExactArgs(2),
		RunE:  showPartition,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search feedback gains for the smallest terminal variance",
		Args:  cobra.NoArgs,
		RunE:  sweepGains,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&k1Grid, "k1", "0.5,1,2,5", "comma separated values for the first gain")
	sweepCmd.Flags().StringVar(&k2Grid, "k2", "0.5,1.5,3,4", "comma separated values for the second gain")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "accumulate batches with a live plot",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().StringVar(&strategy, "strategy", config.DefaultStrategy, "serial, parallel or shared")
	liveCmd.Flags().IntVar(&batches, "batches", 50, "number of batches, 0 for unlimited")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("%-12s steps=%-5d trials=%-6d strategy=%-9s k=%v\n", name, p.Steps, p.Trials, p.Strategy, p.System.K)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, compareCmd, listCmd, plotCmd, partitionCmd, sweepCmd, liveCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, viz.StatusFailed.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "time steps per trial")
	cmd.Flags().IntVar(&trials, "trials", config.DefaultTrials, "number of trials")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count, 0 for one per cpu")
	cmd.Flags().Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
	cmd.Flags().StringVar(&initState, "x0", "1,0", "initial condition x1,x2")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig layers preset, config file and explicitly set flags, in that
// order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Resolve(preset, configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("trials") {
		cfg.Trials = trials
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Lookup("strategy") != nil && flags.Changed("strategy") {
		cfg.Strategy = strategy
	}
	if flags.Changed("x0") {
		x0, err := parseFloats(initState)
		if err != nil {
			return nil, fmt.Errorf("invalid --x0: %w", err)
		}
		cfg.InitState = x0
	}

	return cfg, cfg.Validate()
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger()

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			logger.Info("serving metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "error", err)
			}
		}()
		defer srv.Close()
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(logger), experiment.WithRecorder(rec))
	if err != nil {
		return err
	}

	closed := exp.System().ClosedLoop()
	rho, err := control.SpectralRadius(closed)
	if err == nil && rho >= 1 {
		logger.Warn("closed loop is not stable, trajectories will diverge", "spectral_radius", rho)
	}

	res, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("%s · %d trials × %d steps · %d workers", res.Strategy, cfg.Trials, cfg.Steps, res.Workers)))
	fmt.Println(viz.Metric("elapsed", res.Elapsed.String()))
	meta := exp.Metadata(res)
	if len(meta.Input) > 0 {
		fmt.Println(viz.Metric("input at x0", fmt.Sprintf("%.4f", meta.Input)))
	}
	if p, err := analysis.StationaryCovariance(closed, 1e-9, 10000); err == nil {
		term := res.Summary.Terminal()
		fmt.Println(viz.Metric("terminal var", fmt.Sprintf("%.4f / %.4f", term.Var[0], term.Var[1])))
		fmt.Println(viz.Metric("stationary var", fmt.Sprintf("%.4f / %.4f", p.At(0, 0), p.At(1, 1))))
	}
	fmt.Println()
	fmt.Print(viz.SummaryTable(res.Summary, stride))

	if noSave {
		return nil
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(meta, res.Buffer, res.Summary)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved: %s\n", runID)
	return nil
}

func compareStrategies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(newLogger()))
	if err != nil {
		return err
	}

	cmp, err := exp.Compare(cmd.Context(), cfg.Seed)
	if err != nil {
		return err
	}

	rows := make([]viz.ComparisonRow, len(cmp))
	for i, c := range cmp {
		w := c.Result.Workers
		if c.Result.Strategy == dynamo.StrategySerial {
			w = 1
		}
		rows[i] = viz.ComparisonRow{
			Strategy: c.Result.Strategy,
			Workers:  w,
			Elapsed:  c.Result.Elapsed,
			MeanDev:  c.MeanDev,
			VarDev:   c.VarDev,
		}
	}
	fmt.Println(viz.ComparisonTable(rows))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTRATEGY\tWORKERS\tSTEPS\tTRIALS\tSEED\tELAPSED\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.Strategy, r.Workers, r.Steps, r.Trials, r.Seed,
			r.Elapsed.Round(time.Microsecond), r.Timestamp.Format(time.RFC3339))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	sum, err := st.LoadSummary(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("%s · %s · %d trials", meta.ID, meta.Strategy, meta.Trials)))
	fmt.Println()
	fmt.Println(viz.PlotSummary(sum, false, 70, 12))
	fmt.Println()
	fmt.Println(viz.PlotSummary(sum, true, 70, 12))
	return nil
}

func showPartition(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid trial count: %w", err)
	}
	w, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid worker count: %w", err)
	}

	parts, err := dynamo.Partition(n, w)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKER\tRANGE\tTRIALS")
	for i, r := range parts {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i, r, r.Len())
	}
	return tw.Flush()
}

func sweepGains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	k1, err := parseFloats(k1Grid)
	if err != nil {
		return fmt.Errorf("invalid --k1: %w", err)
	}
	k2, err := parseFloats(k2Grid)
	if err != nil {
		return fmt.Errorf("invalid --k2: %w", err)
	}

	best, val, err := optim.GainSweep(cmd.Context(), cfg, k1, k2, experiment.WithLogger(newLogger()))
	if err != nil {
		return err
	}

	fmt.Println(viz.Metric("best gain", fmt.Sprintf("k1=%g k2=%g", best["k1"], best["k2"])))
	fmt.Println(viz.Metric("terminal variance", fmt.Sprintf("%.6f", val)))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), exp, cfg.Strategy, cfg.Seed, cfg.Steps, batches)
}
