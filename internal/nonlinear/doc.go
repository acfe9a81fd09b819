// Package nonlinear solves the corrector equations handed out by the BDF
// controller: a Newton iteration over ode.Residual with pluggable linear
// solvers for the iteration matrix.
package nonlinear
