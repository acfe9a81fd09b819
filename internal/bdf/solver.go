package bdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/san-kum/bdfsim/internal/compute"
	"github.com/san-kum/bdfsim/internal/ode"
)

// uround is the unit round-off of float64.
const uround = 0x1p-52

// Workspace is the caller-owned scratch passed to Compute and Step.
type Workspace = ode.Workspace

func NewWorkspace(n int) *Workspace { return ode.NewWorkspace(n) }

// Solver integrates one system with the BDF method. It implements
// ode.Stepper and ode.OrderController.
type Solver struct {
	p      Params
	relTol float64
	absTol []float64
	minDt  float64
	maxDt  float64
	initDt float64

	nls       ode.NonlinearSolver
	be        compute.Backend
	logger    *slog.Logger
	observers []ode.StepObserver

	n       int
	zn      *History
	coef    Coefficients
	adapter *Adapter
	pdt     []float64
	weights []float64
	acor    []float64
	ycur    []float64
	tempv   []float64

	t           float64
	q           int
	qNext       int
	qNextChange int
	qUsed       int
	dt          float64
	dtNext      float64
	dtUsed      float64
	dtMin       float64
	dtMax       float64
	eta         float64
	etamx       float64
	savedTq5    float64
	nist        int
	started     bool
	tstop       float64
	hasStop     bool

	stats Stats
}

type Option func(*Solver)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBackend selects the vector backend. The solver owns it afterwards.
func WithBackend(be compute.Backend) Option {
	return func(s *Solver) {
		if be != nil {
			s.be = be
		}
	}
}

func WithObserver(obs ode.StepObserver) Option {
	return func(s *Solver) {
		if obs != nil {
			s.observers = append(s.observers, obs)
		}
	}
}

// WithStartTime sets the time of y0 (default 0).
func WithStartTime(t0 float64) Option {
	return func(s *Solver) { s.t = t0 }
}

// WithStopTime forbids steps past tstop. Steps are otherwise free to
// overshoot an output time and the output is interpolated.
func WithStopTime(tstop float64) Option {
	return func(s *Solver) { s.SetStopTime(tstop) }
}

// New prepares a solver for the initial state y0 with per-component
// absolute tolerances absTol. y0 is copied.
func New(y0, absTol []float64, nls ode.NonlinearSolver, cfg Config, opts ...Option) (*Solver, error) {
	n := len(y0)
	if n == 0 {
		return nil, ErrEmptyState
	}
	if len(absTol) != n {
		return nil, fmt.Errorf("%w: %d absolute tolerances for %d components", ode.ErrDimensionMismatch, len(absTol), n)
	}
	if nls == nil {
		return nil, fmt.Errorf("bdf: nonlinear solver is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !ode.State(y0).IsValid() {
		return nil, ode.ErrInvalidState
	}
	for i, a := range absTol {
		if a < 0 || math.IsNaN(a) || math.IsInf(a, 0) {
			return nil, fmt.Errorf("%w: absTol[%d] = %g", ErrInvalidTolerance, i, a)
		}
	}

	qmax := cfg.Params.QMax
	s := &Solver{
		p:      cfg.Params,
		relTol: cfg.RelTol,
		absTol: append([]float64(nil), absTol...),
		minDt:  cfg.MinStep,
		maxDt:  cfg.MaxStep,
		initDt: cfg.InitialStep,
		nls:    nls,
		logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
		n:      n,
		coef:   newCoefficients(qmax),
		pdt:    make([]float64, qmax+1),

		weights: make([]float64, n),
		acor:    make([]float64, n),
		ycur:    make([]float64, n),
		tempv:   make([]float64, n),
		q:       1,
		qNext:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.be == nil {
		s.be = compute.AutoSelectBackend()
	}
	s.zn = NewHistory(s.be, n, qmax)
	s.adapter = newAdapter(s.be, s.zn, s.weights)
	s.be.Copy(s.zn.Col(0), y0)

	if err := EvalWeights(s.be, s.weights, y0, s.absTol, s.relTol); err != nil {
		return nil, err
	}
	s.stats.CurrentTime = s.t
	return s, nil
}

func (s *Solver) check(sys ode.System, ws *ode.Workspace, ylen int) error {
	if sys.Dim() != s.n {
		return fmt.Errorf("%w: system has %d components, solver %d", ode.ErrDimensionMismatch, sys.Dim(), s.n)
	}
	if ylen != s.n {
		return fmt.Errorf("%w: output has %d components, solver %d", ode.ErrDimensionMismatch, ylen, s.n)
	}
	if !ws.Fits(s.n) {
		return fmt.Errorf("%w: workspace does not fit %d components", ode.ErrDimensionMismatch, s.n)
	}
	return nil
}

// Compute advances the solution to tmax and writes it into y. It may be
// called again with a later tmax to continue the same integration, or
// with a time inside the last step to read the dense output.
func (s *Solver) Compute(ctx context.Context, sys ode.System, ws *ode.Workspace, y []float64, tmax float64) error {
	if err := s.check(sys, ws, len(y)); err != nil {
		return err
	}
	if s.hasStop && !reachedFrom(s.tstop, tmax) {
		return fmt.Errorf("%w: tmax=%g, stop=%g", ErrPastStopTime, tmax, s.tstop)
	}
	if !s.started {
		if err := s.firstStep(sys, ws, tmax); err != nil {
			return err
		}
	}

	for steps := 0; !s.reached(tmax); steps++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if steps >= s.p.MaxSteps {
			return s.fail(ErrStepBudget)
		}
		if err := s.step(sys, ws); err != nil {
			return err
		}
	}
	return s.Interpolate(tmax, y)
}

// Step takes a single internal step toward tmax. The step may pass tmax;
// only a stop time bounds it. It does nothing once tmax has been reached.
func (s *Solver) Step(ctx context.Context, sys ode.System, ws *ode.Workspace, tmax float64) error {
	if err := s.check(sys, ws, s.n); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.started {
		if err := s.firstStep(sys, ws, tmax); err != nil {
			return err
		}
	}
	if s.reached(tmax) || (s.hasStop && s.reached(s.tstop)) {
		return nil
	}
	return s.step(sys, ws)
}

// SetStopTime bounds all later steps by tstop. It applies from the next
// step on and replaces any earlier stop time.
func (s *Solver) SetStopTime(tstop float64) {
	s.tstop = tstop
	s.hasStop = true
}

// ClearStopTime lets steps run past the previous stop time again.
func (s *Solver) ClearStopTime() { s.hasStop = false }

func (s *Solver) reached(tmax float64) bool {
	return reachedFrom(s.t, tmax)
}

// reachedFrom reports whether t is at or past tmax up to round-off.
func reachedFrom(t, tmax float64) bool {
	return tmax-t <= 100*uround*math.Max(math.Abs(t), math.Abs(tmax))
}

// Interpolate evaluates the history polynomial at t, which must lie in
// the last accepted step [t_n - dt_used, t_n].
func (s *Solver) Interpolate(t float64, dst []float64) error {
	if len(dst) != s.n {
		return fmt.Errorf("%w: output has %d components, solver %d", ode.ErrDimensionMismatch, len(dst), s.n)
	}
	if s.nist == 0 {
		if t != s.t {
			return fmt.Errorf("%w: no step taken yet, t=%g", ErrOutsideHistory, t)
		}
		s.be.Copy(dst, s.zn.Col(0))
		return nil
	}
	fuzz := 100 * uround * (math.Abs(s.t) + math.Abs(s.dtUsed))
	lo := s.t - s.dtUsed - fuzz
	hi := s.t + fuzz
	if t < lo || t > hi {
		return fmt.Errorf("%w: t=%g not in [%g, %g]", ErrOutsideHistory, t, s.t-s.dtUsed, s.t)
	}
	s.zn.Interpolate(s.q, (t-s.t)/s.dt, dst)
	return nil
}

func (s *Solver) Stats() Stats {
	st := s.stats
	st.RHSEvals += s.adapter.rhsEvals
	st.JacEvals = s.adapter.jacEvals
	st.LastStep = s.dtUsed
	st.LastOrder = s.qUsed
	st.CurrentTime = s.t
	return st
}

func (s *Solver) Time() float64         { return s.t }
func (s *Solver) Order() int            { return s.q }
func (s *Solver) NextOrder() int        { return s.qNext }
func (s *Solver) StepSize() float64     { return s.dt }
func (s *Solver) NextStepSize() float64 { return s.dtNext }
func (s *Solver) Dim() int              { return s.n }

// Close releases the backend.
func (s *Solver) Close() {
	s.be.Cleanup()
}

func (s *Solver) fail(err error) error {
	s.logger.Warn("integration stopped", "err", err, "step", s.nist, "t", s.t, "dt", s.dt, "q", s.q)
	return &IntegrationError{Step: s.nist, Time: s.t, Dt: s.dt, Order: s.q, Wrapped: err}
}

var (
	_ ode.Stepper         = (*Solver)(nil)
	_ ode.OrderController = (*Solver)(nil)
	_ ode.Residual        = (*Adapter)(nil)
)
