package ode

import "errors"

// Domain errors shared by systems and solvers.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("ode: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates a vector whose length differs from the system size.
	ErrDimensionMismatch = errors.New("ode: dimension mismatch between state and system")

	// ErrSingular indicates a linear system that could not be factored.
	ErrSingular = errors.New("ode: singular iteration matrix")
)
