package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/avolkov/hybridsmc/internal/config"
	"github.com/avolkov/hybridsmc/internal/dynamo"
	"github.com/avolkov/hybridsmc/internal/hybrid"
	"github.com/avolkov/hybridsmc/internal/integrators"
	"github.com/avolkov/hybridsmc/internal/metrics"
	"github.com/avolkov/hybridsmc/internal/plant"
	"github.com/avolkov/hybridsmc/internal/sim"
	"github.com/avolkov/hybridsmc/internal/smc"
	"github.com/avolkov/hybridsmc/internal/storage"
	"github.com/avolkov/hybridsmc/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	mode       string
	criterion  string
	integrator string
	dt         float64
	duration   float64
	seed       int64

	theta1 float64
	theta2 float64
	pos    float64

	prediction bool
	learning   bool

	plotColumn string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hybridsmc",
		Short: "hybrid sliding-mode control switching lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".hybridsmc", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a closed-loop session and save the trace",
		RunE:  runSession,
	}
	addLoopFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the loop with live visualization",
		RunE:  runLive,
	}
	addLoopFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a trace column of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotColumn, "column", "u", "column to plot (u, x0..x5)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "print a saved trace as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	switchesCmd := &cobra.Command{
		Use:   "switches [run_id]",
		Short: "print the switch audit log of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  showSwitches,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCSVCmd, switchesCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLoopFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use a named preset")
	cmd.Flags().StringVar(&mode, "mode", "classical_adaptive", "hybrid mode")
	cmd.Flags().StringVar(&criterion, "criterion", "surface_magnitude", "switching criterion")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (rk4, euler)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().Float64Var(&theta1, "theta1", 0.15, "initial first pendulum angle")
	cmd.Flags().Float64Var(&theta2, "theta2", -0.1, "initial second pendulum angle")
	cmd.Flags().Float64Var(&pos, "pos", 0.0, "initial cart position")
	cmd.Flags().BoolVar(&prediction, "prediction", false, "enable predictive trend gating")
	cmd.Flags().BoolVar(&learning, "learning", false, "record the threshold adaptation log")
}

// resolveConfig merges preset, config file and flags, flags winning.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("mode") || (preset == "" && configFile == "") {
		cfg.Mode = mode
	}
	if cmd.Flags().Changed("criterion") || (preset == "" && configFile == "") {
		cfg.Criterion = criterion
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("theta1") {
		cfg.InitState.Theta1 = theta1
	}
	if cmd.Flags().Changed("theta2") {
		cfg.InitState.Theta2 = theta2
	}
	if cmd.Flags().Changed("pos") {
		cfg.InitState.Pos = pos
	}
	if cmd.Flags().Changed("prediction") {
		cfg.Switching.PredictionEnabled = prediction
	}
	if cmd.Flags().Changed("learning") {
		cfg.Switching.LearningEnabled = learning
	}
	if cmd.Flags().Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}

	return cfg, nil
}

type loop struct {
	cfg    *config.Config
	plant  *plant.DoubleInvertedPendulum
	integ  dynamo.Integrator
	ctrl   *hybrid.Controller
	runner *sim.Runner
}

func buildLoop(cfg *config.Config) (*loop, error) {
	hcfg, err := cfg.ToHybrid()
	if err != nil {
		return nil, err
	}

	var integ dynamo.Integrator
	switch cfg.Integrator {
	case "rk4", "":
		integ = integrators.NewRK4()
	case "euler":
		integ = integrators.NewEuler()
	default:
		return nil, fmt.Errorf("unknown integrator: %s", cfg.Integrator)
	}

	strategies := map[hybrid.ControllerState]dynamo.Strategy{
		hybrid.Classical:     smc.NewClassical(hcfg.MaxForce),
		hybrid.Adaptive:      smc.NewAdaptive(hcfg.MaxForce, cfg.Dt),
		hybrid.SuperTwisting: smc.NewSuperTwisting(hcfg.MaxForce, cfg.Dt),
	}

	ctrl, err := hybrid.NewController(hcfg, strategies)
	if err != nil {
		return nil, err
	}

	dip := plant.NewDoubleInvertedPendulum()
	runner := sim.New(dip, integ, ctrl)
	runner.AddMetric(metrics.NewTrackingError())
	runner.AddMetric(metrics.NewControlEffort())
	runner.AddMetric(metrics.NewSwitchRate(func() int {
		return ctrl.Logic().Stats().TotalSwitches
	}))

	return &loop{cfg: cfg, plant: dip, integ: integ, ctrl: ctrl, runner: runner}, nil
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	lp, err := buildLoop(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s / %s...\n", cfg.Mode, cfg.Criterion)
	start := time.Now()

	result, err := lp.runner.Run(context.Background(), cfg.GetInitState(), dynamo.RunConfig{
		Dt:            cfg.Dt,
		Duration:      cfg.Duration,
		Seed:          cfg.Seed,
		ValidateState: true,
	})
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(cfg.Mode, cfg.Criterion, cfg.Dt, cfg.Duration, cfg.Seed, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	if len(result.Switches) > 0 {
		fmt.Println("\nswitches:")
		printSwitches(result.Switches)
	} else {
		fmt.Println("\nno switches executed")
	}
	if result.SafeSteps > 0 {
		fmt.Printf("\nsafe-mode steps: %d\n", result.SafeSteps)
	}

	return nil
}

func printSwitches(records []hybrid.SwitchRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  time\tfrom\tto\tconfidence\treason")
	for _, r := range records {
		fmt.Fprintf(w, "  %.3f\t%s\t%s\t%.2f\t%s\n", r.Time, r.From, r.To, r.Confidence, r.Reason)
	}
	w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	lp, err := buildLoop(cfg)
	if err != nil {
		return err
	}
	return viz.Run(lp.plant, lp.integ, lp.ctrl, cfg.GetInitState(), cfg.Dt)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\tmode\tcriterion\tswitches\ttracking_error")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\n", r.ID, r.Mode, r.Criterion, r.Switches, r.Metrics["tracking_error"])
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	times, states, controls, _, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	if len(times) == 0 {
		return fmt.Errorf("empty trace for run %s", args[0])
	}

	var series []float64
	switch plotColumn {
	case "u":
		series = controls
	default:
		var idx int
		if _, err := fmt.Sscanf(plotColumn, "x%d", &idx); err != nil {
			return fmt.Errorf("unknown column %q", plotColumn)
		}
		for _, s := range states {
			if idx < 0 || idx >= len(s) {
				return fmt.Errorf("column %q out of range", plotColumn)
			}
			series = append(series, s[idx])
		}
	}

	fmt.Println(asciigraph.Plot(series,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s  %s", args[0], plotColumn))))
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	times, states, controls, active, err := storage.New(dataDir).LoadTrace(args[0])
	if err != nil {
		return err
	}

	fmt.Print("time")
	if len(states) > 0 {
		for i := range states[0] {
			fmt.Printf(",x%d", i)
		}
	}
	fmt.Println(",u,active")

	for i := range times {
		fmt.Printf("%.6f", times[i])
		for _, v := range states[i] {
			fmt.Printf(",%.6f", v)
		}
		fmt.Printf(",%.6f,%s\n", controls[i], active[i])
	}
	return nil
}

func showSwitches(cmd *cobra.Command, args []string) error {
	records, err := storage.New(dataDir).LoadSwitches(args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no switches recorded")
		return nil
	}
	printSwitches(records)
	return nil
}
