package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/bdfsim/internal/config"
	"github.com/san-kum/bdfsim/internal/experiment"
	"github.com/san-kum/bdfsim/internal/export"
	"github.com/san-kum/bdfsim/internal/problems"
	"github.com/san-kum/bdfsim/internal/storage"
	"github.com/san-kum/bdfsim/internal/tui"
	"github.com/spf13/cobra"
)

// resolveConfig layers the preset, the config file and the changed flags,
// in that order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Problem = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Problem, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Problem))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.LoadOver(cfg, configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.Problem = args[0]
		}
	}

	f := cmd.Flags()
	if f.Changed("t-end") {
		cfg.TEnd = tEnd
	}
	if f.Changed("rtol") {
		cfg.RelTol = relTol
	}
	if f.Changed("atol") {
		cfg.AbsTol = absTol
		cfg.AbsTolVector = nil
	}
	if f.Changed("size") {
		cfg.Size = size
	}
	if f.Changed("outputs") {
		cfg.Outputs = outputs
	}
	if f.Changed("linear") {
		cfg.Nonlinear.Linear = linear
	}
	if f.Changed("backend") {
		cfg.Backend = backend
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}
	if f.Changed("max-step") {
		cfg.MaxStep = maxStep
	}
	if f.Changed("min-step") {
		cfg.MinStep = minStep
	}
	if f.Changed("h0") {
		cfg.InitialStep = initialStep
	}
	if f.Changed("qmax") {
		cfg.Solver.QMax = qmax
	}
	if f.Changed("max-steps") {
		cfg.Solver.MaxSteps = maxSteps
	}
	if len(params) > 0 {
		merged := make(map[string]float64, len(cfg.ProblemParams)+len(params))
		for k, v := range cfg.ProblemParams {
			merged[k] = v
		}
		for k, raw := range params {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", k, err)
			}
			merged[k] = v
		}
		cfg.ProblemParams = merged
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

func saveRun(cfg *config.Config, result *experiment.Result, runErr error) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	return st.Save(cfg, result, runErr)
}

func printSummary(result *experiment.Result) {
	st := result.Stats
	fmt.Printf("completed in %v\n", result.Elapsed)
	fmt.Printf("steps: %d  (error test fails %d, convergence fails %d)\n", st.Steps, st.ErrTestFailures, st.ConvFailures)
	fmt.Printf("rhs evals: %d  jacobians: %d  newton iterations: %d\n", st.RHSEvals, st.JacEvals, st.NonlinIters)
	fmt.Printf("last step: %.3e at order %d\n", st.LastStep, st.LastOrder)

	if n := len(result.States); n > 0 {
		y := result.States[n-1]
		fmt.Printf("\ny(%g):\n", result.Times[n-1])
		for i, v := range y {
			if i >= 6 {
				fmt.Printf("  ... %d more\n", len(y)-i)
				break
			}
			fmt.Printf("  y%d = %.10e\n", i, v)
		}
	}
}

func runProblem(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	exp := experiment.New(cfg, experiment.NewRegistry(), experiment.WithLogger(slog.Default()))
	if err := exp.Setup(); err != nil {
		return err
	}

	fmt.Printf("integrating %s to t=%g...\n", cfg.Problem, exp.TEnd())
	result, runErr := exp.Run(ctx)

	runID, err := saveRun(cfg, result, runErr)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	printSummary(result)
	return runErr
}

func liveAndSave(cmd *cobra.Command, cfg *config.Config) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	result, runErr := tui.RunLive(ctx, cfg, experiment.NewRegistry())
	if result == nil {
		return runErr
	}
	runID, err := saveRun(cfg, result, runErr)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	printSummary(result)
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	return liveAndSave(cmd, cfg)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := tui.RunInteractive(experiment.NewRegistry().ListProblems())
	if err != nil || cfg == nil {
		return err
	}
	return liveAndSave(cmd, cfg)
}

// scaleTolerances moves cfg to relative tolerance tol, keeping the ratio
// of absolute to relative tolerance.
// scaleTolerances sets rel_tol to tol and scales the absolute tolerances
// by the same factor, so the base rel_tol must be positive.
func scaleTolerances(cfg *config.Config, tol float64) (*config.Config, error) {
	if cfg.RelTol <= 0 {
		return nil, fmt.Errorf("bench scales tolerances from rel_tol, which is %g", cfg.RelTol)
	}
	if tol <= 0 {
		return nil, fmt.Errorf("bench tolerance %g must be positive", tol)
	}
	c := cfg.Clone()
	ratio := tol / cfg.RelTol
	c.RelTol = tol
	c.AbsTol *= ratio
	for i := range c.AbsTolVector {
		c.AbsTolVector[i] *= ratio
	}
	return c, nil
}

func maxError(p problems.Problem, t float64, y []float64) (float64, bool) {
	ex, ok := p.(problems.Exact)
	if !ok {
		return 0, false
	}
	ref := make([]float64, len(y))
	ex.Exact(t, ref)
	worst := 0.0
	for i := range y {
		worst = math.Max(worst, math.Abs(y[i]-ref[i]))
	}
	return worst, true
}

func benchProblem(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	configs := make([]*config.Config, len(benchTols))
	for i, tol := range benchTols {
		if configs[i], err = scaleTolerances(base, tol); err != nil {
			return err
		}
		configs[i].Outputs = 1
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	fmt.Printf("benchmarking %s\n\n", base.Problem)
	outcomes := experiment.NewEnsemble(experiment.NewRegistry(), configs).Run(ctx)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RTOL\tSTEPS\tERR FAILS\tCONV FAILS\tRHS\tJAC\tNEWTON\tTIME\tMAX ERROR")
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "%.0e\tfailed: %v\n", o.Config.RelTol, o.Err)
			continue
		}
		result := o.Result
		errCol := "-"
		n := len(result.States) - 1
		if e, ok := maxError(o.Problem, result.Times[n], result.States[n]); ok {
			errCol = fmt.Sprintf("%.2e", e)
		}
		st := result.Stats
		fmt.Fprintf(w, "%.0e\t%d\t%d\t%d\t%d\t%d\t%d\t%v\t%s\n",
			o.Config.RelTol, st.Steps, st.ErrTestFailures, st.ConvFailures, st.RHSEvals, st.JacEvals, st.NonlinIters, result.Elapsed, errCol)
	}
	return w.Flush()
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
	fmt.Fprintln(w, "ID\tPROBLEM\tTIME\tDIM\tT_END\tRTOL\tSTEPS\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%.0e\t%d\t%s\n",
			run.ID,
			run.Problem,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Dim,
			run.TEnd,
			run.RelTol,
			run.Stats.Steps,
			status,
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
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}
	if svgFile != "" {
		svg := export.SVG(meta.Problem+" "+meta.ID, export.Components(times, states, 6), 800, 400)
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("problem: %s\n", meta.Problem)
	fmt.Printf("samples: %d\n\n", len(states))

	numVars := len(states[0])
	maxPlots := 6
	if numVars > maxPlots {
		numVars = maxPlots
	}

	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			data[i] = states[i][varIdx]
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("y%d vs time", varIdx)),
		))
		fmt.Println()
	}

	steps, err := st.LoadSteps(runID)
	if err != nil {
		return err
	}
	if len(steps) < 2 {
		return nil
	}
	stepTimes := make([]float64, len(steps))
	logDt := make([]float64, len(steps))
	order := make([]float64, len(steps))
	for i, s := range steps {
		stepTimes[i] = s.Time
		logDt[i] = math.Log10(s.Dt)
		order[i] = float64(s.Order)
	}
	if stepsSVG != "" {
		svg := export.SVG(meta.ID+" steps", []export.Series{
			{Name: "log10 dt", X: stepTimes, Y: logDt},
			{Name: "order", X: stepTimes, Y: order},
		}, 800, 400)
		if err := os.WriteFile(stepsSVG, []byte(svg), 0644); err != nil {
			return err
		}
	}
	fmt.Println(asciigraph.Plot(logDt,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("log10(dt) per step"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(order,
		asciigraph.Height(5),
		asciigraph.Width(80),
		asciigraph.Caption("order per step"),
	))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if outFile == "" {
		return st.Export(os.Stdout, args[0])
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := st.Export(f, args[0]); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", args[0], outFile)
	return nil
}

func listProblems(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDIM\tT_END\tDESCRIPTION")
	for _, name := range registry.ListProblems() {
		p, err := registry.GetProblem(name, config.DefaultSize, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%g\t%s\n", name, p.Dim(), p.TEnd(), p.Description())
	}
	return w.Flush()
}
