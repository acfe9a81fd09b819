package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/san-kum/bdfsim/internal/config"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string

	configFile string
	preset     string

	tEnd        float64
	relTol      float64
	absTol      float64
	size        int
	outputs     int
	linear      string
	backend     string
	workers     int
	maxStep     float64
	minStep     float64
	initialStep float64
	qmax        int
	maxSteps    int
	params      map[string]string

	benchTols []float64
	outFile   string
	svgFile   string
	stepsSVG  string
)

func setupLogger() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", logLevel)
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	))
	return nil
}

func addRunFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&tEnd, "t-end", 0, "end time (0 uses the problem default)")
	f.Float64Var(&relTol, "rtol", config.DefaultRelTol, "relative tolerance")
	f.Float64Var(&absTol, "atol", config.DefaultAbsTol, "absolute tolerance")
	f.IntVar(&size, "size", config.DefaultSize, "grid size of discretized problems")
	f.IntVar(&outputs, "outputs", config.DefaultOutputs, "number of output samples")
	f.StringVar(&linear, "linear", config.DefaultLinear, "linear solver (lu, bicgstab)")
	f.StringVar(&backend, "backend", config.DefaultBackend, "vector backend (auto, cpu, serial)")
	f.IntVar(&workers, "workers", 0, "backend workers (0 = one per cpu)")
	f.Float64Var(&maxStep, "max-step", 0, "largest step (0 = unbounded)")
	f.Float64Var(&minStep, "min-step", 0, "smallest step")
	f.Float64Var(&initialStep, "h0", 0, "first step (0 = estimate)")
	f.IntVar(&qmax, "qmax", 5, "highest bdf order")
	f.IntVar(&maxSteps, "max-steps", 0, "internal step budget per output (0 = default)")
	f.StringToStringVar(&params, "param", nil, "problem parameter name=value")
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "bdfsim",
		Short: "adaptive bdf integration lab for stiff odes",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger()
		},
		RunE: runInteractive,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".bdfsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [problem]",
		Short: "integrate a problem and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProblem,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [problem]",
		Short: "integrate with a live view of step size and order",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [problem]",
		Short: "work-precision table over a range of tolerances",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchProblem,
	}
	addRunFlags(benchCmd)
	benchCmd.Flags().Float64SliceVar(&benchTols, "tols", []float64{1e-3, 1e-4, 1e-5, 1e-6, 1e-7, 1e-8}, "relative tolerances")

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
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the state components to an svg file")
	plotCmd.Flags().StringVar(&stepsSVG, "steps-svg", "", "also write log10(dt) and order per step to an svg file")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list available problems",
		RunE:  listProblems,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list available presets for a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for problem: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, benchCmd, listCmd, plotCmd, exportCmd, problemsCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
