package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/bdfsim/internal/compute"
	"github.com/san-kum/bdfsim/internal/nonlinear"
	"github.com/san-kum/bdfsim/internal/problems"
)

type problemFactory func(size int, params map[string]float64) problems.Problem

type Registry struct {
	problems map[string]problemFactory
	linear   map[string]func(tol float64) nonlinear.LinearSolver
	// consumed lists the parameters a factory handles itself.
	consumed map[string][]string
}

func param(params map[string]float64, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}

func NewRegistry() *Registry {
	r := &Registry{
		problems: make(map[string]problemFactory),
		linear:   make(map[string]func(float64) nonlinear.LinearSolver),
		consumed: make(map[string][]string),
	}

	r.problems["decay"] = func(size int, params map[string]float64) problems.Problem {
		return problems.NewDecay(size, param(params, "stiffness", 1e3))
	}
	r.consumed["decay"] = []string{"stiffness"}
	r.problems["constant"] = func(size int, _ map[string]float64) problems.Problem {
		return problems.NewConstant(size)
	}
	r.problems["linear"] = func(int, map[string]float64) problems.Problem {
		return problems.NewStiffLinear()
	}
	r.problems["robertson"] = func(int, map[string]float64) problems.Problem {
		return problems.NewRobertson()
	}
	r.problems["vanderpol"] = func(int, map[string]float64) problems.Problem {
		return problems.NewVanDerPol(100)
	}
	r.problems["heat"] = func(size int, _ map[string]float64) problems.Problem {
		return problems.NewHeat1D(size, 1)
	}
	r.problems["brusselator"] = func(size int, _ map[string]float64) problems.Problem {
		return problems.NewBrusselator1D(size)
	}

	r.linear["lu"] = func(float64) nonlinear.LinearSolver { return nonlinear.NewDenseLU() }
	r.linear["bicgstab"] = func(tol float64) nonlinear.LinearSolver { return nonlinear.NewBiCGStab(tol, 0) }

	return r
}

// GetProblem builds a problem and applies params to it.
func (r *Registry) GetProblem(name string, size int, params map[string]float64) (problems.Problem, error) {
	fn, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	p := fn(size, params)

	skip := make(map[string]bool)
	for _, k := range r.consumed[name] {
		skip[k] = true
	}
	for k, v := range params {
		if skip[k] {
			continue
		}
		c, ok := p.(problems.Configurable)
		if !ok || !c.SetParam(k, v) {
			return nil, fmt.Errorf("problem %s has no parameter %q", name, k)
		}
	}
	return p, nil
}

func (r *Registry) GetLinearSolver(name string, tol float64) (nonlinear.LinearSolver, error) {
	fn, ok := r.linear[name]
	if !ok {
		return nil, fmt.Errorf("unknown linear solver: %s", name)
	}
	return fn(tol), nil
}

func (r *Registry) GetBackend(name string, workers int) (compute.Backend, error) {
	return compute.ByName(name, workers)
}

func (r *Registry) ListProblems() []string {
	return sortedKeys(r.problems)
}

func (r *Registry) ListLinearSolvers() []string {
	return sortedKeys(r.linear)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
