// Package ode provides the contracts shared by the integrator and its
// collaborators.
//
// The package defines the fundamental interfaces and types for implicit
// integration of ordinary differential equations y' = F(t, y):
//
//   - [System]: right-hand side F and its Jacobian J
//   - [Residual]: the modified residual G and Jacobian H handed to a nonlinear solver
//   - [NonlinearSolver]: drives G(u) = 0 to convergence
//   - [Stepper] and [OrderController]: capabilities of a multistep integrator
//   - [StepObserver]: receives a [StepInfo] after every accepted step
//
// # Example
//
//	sys := problems.NewRobertson()
//	solver, _ := bdf.New(sys.Initial(), absTol, nonlinear.NewNewton(nonlinear.NewDenseLU()), bdf.DefaultConfig())
//	y := sys.Initial()
//	err := solver.Compute(ctx, sys, bdf.NewWorkspace(sys.Dim()), y, 40)
//
// # Thread Safety
//
// Solvers, nonlinear solvers and workspaces are NOT thread-safe. Run
// independent integrations on independent instances.
package ode
