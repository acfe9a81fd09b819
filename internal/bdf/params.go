package bdf

import (
	"fmt"
	"math"
)

// Params holds the tuning constants of the step and order controller.
// A Solver copies its Params at construction; they never change afterwards.
type Params struct {
	// QMax is the highest BDF order used (at most 5).
	QMax int `yaml:"qmax"`
	// Threshold is the error-test acceptance bound on the normalized local
	// error and the smallest step ratio worth acting on.
	Threshold float64 `yaml:"threshold"`
	// DtLowerBoundFactor times the time round-off gives the step floor.
	DtLowerBoundFactor float64 `yaml:"dt_lb_factor"`
	// DtUpperBoundFactor bounds the first step relative to the interval
	// and to the scale of the initial state.
	DtUpperBoundFactor float64 `yaml:"dt_ub_factor"`
	// MaxDtIter is the number of step shrinks allowed after nonlinear
	// solve failures within one step.
	MaxDtIter int `yaml:"max_dt_iter"`
	// MaxErrTestFails consecutive error-test failures in one step are fatal.
	MaxErrTestFails int `yaml:"max_err_test_fails"`
	// OrderDropFails is the number of failures retried at the same order.
	OrderDropFails int `yaml:"order_drop_fails"`
	// SmallErrFails is the failure count from which EtaMaxErrFail applies.
	SmallErrFails int `yaml:"small_err_fails"`
	// MaxSteps bounds the internal steps taken by one Compute call.
	MaxSteps int `yaml:"max_steps"`

	EtaMaxFirst   float64 `yaml:"eta_max_first"`
	EtaMaxEarly   float64 `yaml:"eta_max_early"`
	EtaMax        float64 `yaml:"eta_max"`
	SmallSteps    int     `yaml:"small_steps"`
	EtaMin        float64 `yaml:"eta_min"`
	EtaMaxErrFail float64 `yaml:"eta_max_err_fail"`
	EtaConvFail   float64 `yaml:"eta_conv_fail"`

	Bias1 float64 `yaml:"bias1"`
	Bias2 float64 `yaml:"bias2"`
	Bias3 float64 `yaml:"bias3"`
	AddOn float64 `yaml:"addon"`

	// NonlinCoef scales the nonlinear convergence tolerance.
	NonlinCoef float64 `yaml:"nonlin_coef"`
	// LongWait is the order-change hysteresis after the history is reseeded.
	LongWait int `yaml:"long_wait"`
	// InitIters bounds the passes of the first-step estimate.
	InitIters int `yaml:"init_iters"`
	// InitBias scales the estimated first step.
	InitBias float64 `yaml:"init_bias"`
}

func DefaultParams() Params {
	return Params{
		QMax:               5,
		Threshold:          1.5,
		DtLowerBoundFactor: 100.0,
		DtUpperBoundFactor: 0.1,
		MaxDtIter:          4,
		MaxErrTestFails:    7,
		OrderDropFails:     3,
		SmallErrFails:      2,
		MaxSteps:           100000,
		EtaMaxFirst:        1e4,
		EtaMaxEarly:        10.0,
		EtaMax:             10.0,
		SmallSteps:         10,
		EtaMin:             0.1,
		EtaMaxErrFail:      0.2,
		EtaConvFail:        0.25,
		Bias1:              6.0,
		Bias2:              6.0,
		Bias3:              10.0,
		AddOn:              1e-6,
		NonlinCoef:         0.1,
		LongWait:           10,
		InitIters:          4,
		InitBias:           0.5,
	}
}

// LMax is the number of Nordsieck columns.
func (p Params) LMax() int { return p.QMax + 1 }

func (p Params) Validate() error {
	if p.QMax < 1 || p.QMax > 5 {
		return fmt.Errorf("bdf: qmax must be in [1, 5], got %d", p.QMax)
	}
	if p.Threshold <= 0 {
		return fmt.Errorf("bdf: threshold must be positive, got %g", p.Threshold)
	}
	if p.DtLowerBoundFactor <= 0 || p.DtUpperBoundFactor <= 0 {
		return fmt.Errorf("bdf: step bound factors must be positive")
	}
	if p.MaxDtIter < 0 || p.MaxErrTestFails < 1 || p.MaxSteps < 1 {
		return fmt.Errorf("bdf: retry budgets must be positive")
	}
	if p.OrderDropFails < 1 || p.SmallErrFails < 1 || p.LongWait < 1 || p.InitIters < 1 {
		return fmt.Errorf("bdf: failure and wait counts must be positive")
	}
	if p.EtaMin <= 0 || p.EtaMin >= 1 || p.EtaConvFail <= 0 || p.EtaConvFail >= 1 || p.EtaMaxErrFail <= 0 {
		return fmt.Errorf("bdf: shrink factors must lie in (0, 1)")
	}
	if p.EtaMaxFirst < 1 || p.EtaMaxEarly < 1 || p.EtaMax < 1 {
		return fmt.Errorf("bdf: growth limits must be at least 1")
	}
	if p.Bias1 <= 0 || p.Bias2 <= 0 || p.Bias3 <= 0 || p.AddOn < 0 || p.NonlinCoef <= 0 || p.InitBias <= 0 {
		return fmt.Errorf("bdf: bias coefficients must be positive")
	}
	return nil
}

// Config carries the per-problem settings of a Solver. The absolute
// tolerance vector is passed to New separately.
type Config struct {
	RelTol float64 `yaml:"rel_tol"`
	// MaxStep is dtMax; zero means unbounded.
	MaxStep float64 `yaml:"max_step"`
	// MinStep is a floor on dt in addition to the round-off bound.
	MinStep float64 `yaml:"min_step"`
	// InitialStep, if positive, replaces the first-step estimate.
	InitialStep float64 `yaml:"initial_step"`
	Params      Params  `yaml:"params"`
}

func DefaultConfig() Config {
	return Config{
		RelTol: 1e-6,
		Params: DefaultParams(),
	}
}

func (c Config) Validate() error {
	if c.RelTol < 0 || math.IsNaN(c.RelTol) {
		return fmt.Errorf("%w: relative tolerance %g", ErrInvalidTolerance, c.RelTol)
	}
	if c.MaxStep < 0 || c.MinStep < 0 || c.InitialStep < 0 {
		return fmt.Errorf("bdf: step bounds must be non-negative")
	}
	if c.MaxStep > 0 && c.MinStep > c.MaxStep {
		return fmt.Errorf("bdf: min step %g exceeds max step %g", c.MinStep, c.MaxStep)
	}
	return c.Params.Validate()
}
