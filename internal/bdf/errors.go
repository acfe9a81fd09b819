package bdf

import (
	"errors"
	"fmt"
)

// Configuration errors, reported by New.
var (
	ErrEmptyState       = errors.New("bdf: state vector is empty")
	ErrInvalidTolerance = errors.New("bdf: tolerances must give positive error weights")
)

// Retry budgets whose exhaustion ends an integration.
var (
	// ErrConvergenceBudget: the nonlinear solve kept failing after MaxDtIter shrinks.
	ErrConvergenceBudget = errors.New("bdf: nonlinear solver failed to converge repeatedly")

	// ErrErrorTestBudget: the local error test failed MaxErrTestFails times in one step.
	ErrErrorTestBudget = errors.New("bdf: local error test failed repeatedly")

	// ErrStepBudget: MaxSteps internal steps did not reach the end time.
	ErrStepBudget = errors.New("bdf: maximum number of internal steps exceeded")

	// ErrStepTooSmall: a retry would need a step below the floor.
	ErrStepTooSmall = errors.New("bdf: step size fell below the minimum")

	// ErrTooClose: the end time is within round-off of the start time.
	ErrTooClose = errors.New("bdf: end time too close to start time")

	// ErrOutsideHistory: interpolation requested outside the last step.
	ErrOutsideHistory = errors.New("bdf: time outside the interval covered by the history")

	// ErrPastStopTime: an output time lies beyond the configured stop time.
	ErrPastStopTime = errors.New("bdf: output time beyond the stop time")
)

// IntegrationError is the fatal result of Compute or Step. The solver
// state is left at the last accepted step.
type IntegrationError struct {
	Step    int
	Time    float64
	Dt      float64
	Order   int
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%v (step %d, t=%g, dt=%g, q=%d)", e.Wrapped, e.Step, e.Time, e.Dt, e.Order)
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}
