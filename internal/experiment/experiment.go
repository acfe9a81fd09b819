package experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/bdfsim/internal/bdf"
	"github.com/san-kum/bdfsim/internal/config"
	"github.com/san-kum/bdfsim/internal/nonlinear"
	"github.com/san-kum/bdfsim/internal/ode"
	"github.com/san-kum/bdfsim/internal/problems"
)

// Result is a trajectory sampled at the output times plus the history of
// accepted internal steps.
type Result struct {
	Problem string
	Times   []float64
	States  [][]float64
	Steps   []ode.StepInfo
	Stats   bdf.Stats
	Elapsed time.Duration
}

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    *slog.Logger
	observers []ode.StepObserver

	problem problems.Problem
	solver  *bdf.Solver
	steps   []ode.StepInfo
}

type Option func(*Experiment)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Experiment) { e.logger = logger }
}

// WithObserver forwards every accepted step to obs.
func WithObserver(obs ode.StepObserver) Option {
	return func(e *Experiment) { e.observers = append(e.observers, obs) }
}

func New(cfg *config.Config, registry *Registry, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:      cfg,
		registry: registry,
		logger:   slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Setup builds the problem, the nonlinear solver, the backend and the
// integrator from the configuration.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	p, err := e.registry.GetProblem(e.cfg.Problem, e.cfg.Size, e.cfg.ProblemParams)
	if err != nil {
		return err
	}
	linear, err := e.registry.GetLinearSolver(e.cfg.Nonlinear.Linear, e.cfg.Nonlinear.LinearTol)
	if err != nil {
		return err
	}
	backend, err := e.registry.GetBackend(e.cfg.Backend, e.cfg.Workers)
	if err != nil {
		return err
	}
	absTol, err := e.cfg.AbsTolerances(p.Dim())
	if err != nil {
		return err
	}

	newton := nonlinear.NewNewton(linear)
	if e.cfg.Nonlinear.MaxIter > 0 {
		newton.MaxIter = e.cfg.Nonlinear.MaxIter
	}

	tend := e.cfg.TEnd
	if tend <= 0 {
		tend = p.TEnd()
	}
	opts := []bdf.Option{
		bdf.WithStopTime(tend),
		bdf.WithBackend(backend),
		bdf.WithLogger(e.logger),
		bdf.WithObserver(ode.ObserverFunc(e.record)),
	}
	for _, obs := range e.observers {
		opts = append(opts, bdf.WithObserver(obs))
	}
	solver, err := bdf.New(p.Initial(), absTol, newton, e.cfg.BDFConfig(), opts...)
	if err != nil {
		return fmt.Errorf("setting up %s: %w", p.Name(), err)
	}

	e.problem = p
	e.solver = solver
	return nil
}

func (e *Experiment) record(info ode.StepInfo) { e.steps = append(e.steps, info) }

func (e *Experiment) Problem() problems.Problem { return e.problem }

// TEnd is the configured end time or the problem's default.
func (e *Experiment) TEnd() float64 {
	if e.cfg.TEnd > 0 {
		return e.cfg.TEnd
	}
	if e.problem != nil {
		return e.problem.TEnd()
	}
	return 0
}

// Run integrates to TEnd, sampling Outputs evenly spaced states. On a
// fatal integration error the partial result is returned with the error.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.solver == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	defer e.solver.Close()

	p := e.problem
	tend := e.TEnd()
	n := e.cfg.Outputs

	res := &Result{
		Problem: p.Name(),
		Times:   make([]float64, 0, n+1),
		States:  make([][]float64, 0, n+1),
	}
	res.Times = append(res.Times, 0)
	res.States = append(res.States, p.Initial())

	ws := bdf.NewWorkspace(p.Dim())
	y := make([]float64, p.Dim())
	e.logger.Info("integrating", "problem", p.Name(), "dim", p.Dim(), "t_end", tend)

	start := time.Now()
	var runErr error
	for k := 1; k <= n; k++ {
		tout := tend * float64(k) / float64(n)
		if err := e.solver.Compute(ctx, p, ws, y, tout); err != nil {
			runErr = err
			break
		}
		res.Times = append(res.Times, tout)
		res.States = append(res.States, append([]float64(nil), y...))
	}
	res.Elapsed = time.Since(start)
	res.Steps = e.steps
	res.Stats = e.solver.Stats()

	if runErr != nil {
		e.logger.Error("integration failed", "problem", p.Name(), "err", runErr)
		return res, runErr
	}
	e.logger.Info("integration finished", "problem", p.Name(), "steps", res.Stats.Steps, "elapsed", res.Elapsed)
	return res, nil
}
