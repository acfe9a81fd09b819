// Package bdf implements a variable-order, variable-step Backward
// Differentiation Formula integrator for stiff systems y' = F(t, y).
//
// The solution history is held in Nordsieck form ([History]): column j
// approximates dt^j/j! times the j-th derivative at the current time.
// Every step predicts the new state by a Pascal-triangle update, corrects
// it with one nonlinear solve of the modified residual ([Adapter]) and
// accepts or rejects the result with a weighted local error test. The
// step size and the order (1 to [Params].QMax) are chosen after every
// accepted step from error estimates at orders q-1, q and q+1.
//
// # Usage
//
//	solver, err := bdf.New(y0, absTol, newton, bdf.DefaultConfig(), bdf.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	ws := bdf.NewWorkspace(len(y0))
//	for _, tout := range outputs {
//		if err := solver.Compute(ctx, sys, ws, y, tout); err != nil {
//			return err
//		}
//	}
//
// A Solver is not safe for concurrent use.
package bdf
