// Package problems provides test systems with analytic Jacobians for the
// BDF integrator, from trivially exact ones to classic stiff benchmarks.
package problems

import "github.com/san-kum/bdfsim/internal/ode"

// Problem is an initial value problem y' = F(t, y), y(0) = Initial().
type Problem interface {
	ode.System
	Name() string
	Description() string
	// Initial returns a fresh copy of the initial state.
	Initial() []float64
	// TEnd is the customary end of the integration interval.
	TEnd() float64
}

// Exact is implemented by problems with a known solution.
type Exact interface {
	Exact(t float64, dst []float64)
}

// Configurable problems expose tunable parameters.
type Configurable interface {
	Params() map[string]float64
	SetParam(name string, value float64) bool
}
