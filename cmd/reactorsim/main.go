package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/reactorsim/internal/automation"
	"github.com/san-kum/reactorsim/internal/config"
	"github.com/san-kum/reactorsim/internal/console"
	"github.com/san-kum/reactorsim/internal/export"
	"github.com/san-kum/reactorsim/internal/metrics"
	"github.com/san-kum/reactorsim/internal/optim"
	"github.com/san-kum/reactorsim/internal/sim"
	"github.com/san-kum/reactorsim/internal/storage"
)

var (
	dataDir    string
	configFile string
	preset     string
	dt         float64
	duration   float64
	rod        float64
	inlet      float64
	operator   string
	target     float64
	rods       string
	fps        int
	kpValues   string
	kiValues   string
	field      string
	outFile    string
	trials     int
	spread     float64
	seed       int64
)

var logger = log.New(os.Stderr, "reactorsim: ", 0)

// main registers the commands and runs the live console when no subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:          "reactorsim",
		Short:        "single-point reactor core simulator",
		SilenceUsage: true,
		RunE:         runLive,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".reactorsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run simulation and save it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addModelFlags(runCmd)
	runCmd.Flags().StringVar(&operator, "operator", config.DefaultOperator, "operator (hold|schedule|pid)")
	runCmd.Flags().Float64Var(&target, "target", config.DefaultTarget, "pid setpoint")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive operator console",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addModelFlags(liveCmd)
	liveCmd.Flags().IntVar(&fps, "fps", 10, "updates per second")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tOPERATOR\tDURATION\tDT")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%.1fs\t%.3fs\n", name, p.Operator, p.Duration, p.Dt)
			}
			return w.Flush()
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "compare initial rod insertions in parallel",
		Args:  cobra.NoArgs,
		RunE:  sweepRods,
	}
	addModelFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&rods, "rods", "0,0.25,0.5,0.75,1", "comma-separated rod insertions")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render one recorded field as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&field, "field", "temperature", "field to render")
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search PID gains",
		Args:  cobra.NoArgs,
		RunE:  tunePID,
	}
	addModelFlags(tuneCmd)
	tuneCmd.Flags().Float64Var(&target, "target", config.DefaultTarget, "pid setpoint")
	tuneCmd.Flags().StringVar(&kpValues, "kp", "0.1,0.25,0.5,1", "comma-separated Kp values")
	tuneCmd.Flags().StringVar(&kiValues, "ki", "0,0.01,0.02,0.05", "comma-separated Ki values")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run and save every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "trip statistics over perturbed initial conditions",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addModelFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 100, "number of trials")
	monteCarloCmd.Flags().Float64Var(&spread, "spread", 10, "initial and inlet temperature spread (K)")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportJSONCmd, exportSVGCmd, liveCmd, presetsCmd,
		sweepCmd, tuneCmd, scenarioCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep (s)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration (s)")
	cmd.Flags().Float64Var(&rod, "rod", 0.5, "initial control rod insertion [0,1]")
	cmd.Flags().Float64Var(&inlet, "inlet", 290.0, "initial coolant inlet temperature (K)")
}

// loadConfig layers defaults, preset, config file, environment and flags,
// each overriding the previous one.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	name := "custom"

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg, name = p, preset
	}

	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("rod") {
		cfg.Initial.RodInsertion = rod
	}
	if flags.Changed("inlet") {
		cfg.Initial.CoolantInlet = inlet
	}
	if flags.Lookup("operator") != nil && flags.Changed("operator") {
		cfg.Operator = operator
	}
	if flags.Lookup("target") != nil && flags.Changed("target") {
		cfg.PID.Target = target
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	op, err := cfg.NewOperator()
	if err != nil {
		return err
	}
	runner := sim.New(cfg.NewCore(), op)
	runner.SetLogger(logger)
	for _, m := range metrics.Default() {
		runner.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s simulation (%s operator)...\n", name, cfg.Operator)
	start := time.Now()

	result, runErr := runner.Run(ctx, cfg.SimConfig())
	if runErr != nil && !errors.Is(runErr, sim.ErrInvalidState) && !errors.Is(runErr, sim.ErrCanceled) {
		return runErr
	}
	if runErr != nil {
		logger.Printf("run stopped early: %v", runErr)
	}

	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunInfo{
		Name:     name,
		Operator: cfg.Operator,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
		Err:      runErr,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("status: %s\n", console.Banner(result.Tripped()))
	if final, ok := result.Final(); ok {
		s := final.State
		fmt.Printf("final: flux=%.3g T=%.2fK P=%.4gMW out=%.2fK rod=%.0f%%\n",
			s.NeutronFlux, s.Temperature, s.PowerLevel, s.CoolantOutletTemperature, s.ControlRodInsertion*100)
	}
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for n := range result.Metrics {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Printf("  %s: %.6g\n", n, result.Metrics[n])
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDURATION\tDT\tOPERATOR\tTRIP")

	for _, run := range runs {
		trip := "-"
		if run.Tripped {
			trip = fmt.Sprintf("%.1fs", run.TripTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Operator,
			trip,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("status: %s\n", console.Banner(meta.Tripped))
	fmt.Printf("samples: %d\n\n", len(samples))

	series := []struct {
		caption string
		field   func(i int) float64
	}{
		{"neutron flux", func(i int) float64 { return samples[i].State.NeutronFlux }},
		{"reactor temperature (K)", func(i int) float64 { return samples[i].State.Temperature }},
		{"power level (MW)", func(i int) float64 { return samples[i].State.PowerLevel }},
		{"control rod insertion", func(i int) float64 { return samples[i].State.ControlRodInsertion }},
	}

	for _, sr := range series {
		data := make([]float64, len(samples))
		for i := range samples {
			data[i] = sr.field(i)
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(sr.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	return writeIndentedJSON(os.Stdout, meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rate := fps
	if rate <= 0 {
		rate = 10
	}
	m := console.NewModel(cfg.Conditions(), cfg.ReactorParams(), cfg.Dt, time.Second/time.Duration(rate))
	return console.Run(m)
}

func sweepRods(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	values, err := parseList(rods)
	if err != nil {
		return err
	}

	sw := &sim.Sweep{
		Conditions: cfg.Conditions(),
		Params:     cfg.ReactorParams(),
		Config:     cfg.SimConfig(),
		Operator:   cfg.NewOperator,
		Metrics:    metrics.Default,
	}

	points, err := sw.Run(context.Background(), values)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROD\tFINAL FLUX\tFINAL T\tPEAK T\tPEAK P\tTRIP\tDIVERGED")
	for _, p := range points {
		final, _ := p.Result.Final()
		trip := "-"
		if p.Result.Tripped() {
			trip = fmt.Sprintf("%.1fs", p.Result.TripTime)
		}
		diverged := "-"
		if p.Diverged() {
			diverged = fmt.Sprintf("after %d steps", p.Result.StepsTaken)
		}
		fmt.Fprintf(w, "%.2f\t%.3g\t%.2fK\t%.2fK\t%.4gMW\t%s\t%s\n",
			p.RodInsertion,
			final.State.NeutronFlux,
			final.State.Temperature,
			p.Result.Metrics["peak_temperature"],
			p.Result.Metrics["peak_power"],
			trip,
			diverged,
		)
	}
	return w.Flush()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	trip := -1.0
	if meta.Tripped {
		trip = meta.TripTime
	}
	tr, err := export.NewTrace(samples, field, trip)
	if err != nil {
		return err
	}

	svg := export.TraceToSVG(tr, 800, 400, "#00ff00")
	if svg == "" {
		return fmt.Errorf("not enough samples to render")
	}
	if outFile == "" {
		_, err = fmt.Println(svg)
		return err
	}
	if err := os.WriteFile(outFile, []byte(svg), 0644); err != nil {
		return err
	}
	logger.Printf("wrote %s", outFile)
	return nil
}

func tunePID(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	kp, err := parseList(kpValues)
	if err != nil {
		return err
	}
	ki, err := parseList(kiValues)
	if err != nil {
		return err
	}

	g, err := optim.NewGridSearch([]string{"kp", "ki"}, [][]float64{kp, ki})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("evaluating %d gain pairs over %.0fs...\n", g.Size(), cfg.Duration)
	best, cost, err := g.Search(ctx, optim.PIDObjective(cfg))
	if err != nil {
		return err
	}

	fmt.Printf("best: kp=%g ki=%g\n", best["kp"], best["ki"])
	fmt.Printf("tracking error: %.6g\n", cost)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunScenario(ctx, sc, st, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN ID\tSTEPS\tPEAK T\tTRIP")
	for _, r := range results {
		trip := "-"
		if r.Result.Tripped() {
			trip = fmt.Sprintf("%.1fs", r.Result.TripTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2fK\t%s\n",
			r.Name, r.RunID, r.Result.StepsTaken, r.Result.Metrics["peak_temperature"], trip)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d %s trials...\n", trials, name)
	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:              cfg,
		NumTrials:         trials,
		TemperatureSpread: spread,
		InletSpread:       spread,
		Seed:              seed,
	})
	if err != nil {
		return err
	}

	stats := automation.Summarize(results)
	fmt.Printf("trips: %d/%d (%.1f%%)\n", stats.Trips, stats.Trials, 100*float64(stats.Trips)/float64(max(stats.Trials, 1)))
	fmt.Printf("diverged: %d\n", stats.Diverged)
	if stats.MeanTripTime >= 0 {
		fmt.Printf("mean time to trip: %.2fs\n", stats.MeanTripTime)
	}
	return nil
}

func parseList(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", p, err)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no values given")
	}
	return values, nil
}
