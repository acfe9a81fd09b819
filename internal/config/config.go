package config

import (
	"fmt"
	"os"

	"github.com/san-kum/bdfsim/internal/bdf"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProblem = "robertson"
	DefaultSize    = 32
	DefaultOutputs = 200
	DefaultRelTol  = 1e-6
	DefaultAbsTol  = 1e-10
	DefaultLinear  = "lu"
	DefaultBackend = "auto"
)

type Config struct {
	Problem string `yaml:"problem"`
	// Size is the grid size of the discretized problems (heat, brusselator)
	// and the component count of decay.
	Size int `yaml:"size"`
	// ProblemParams overrides named problem parameters (mu, alpha, ...).
	ProblemParams map[string]float64 `yaml:"problem_params,omitempty"`
	// TEnd of zero uses the problem's own end time.
	TEnd    float64 `yaml:"t_end"`
	Outputs int     `yaml:"outputs"`

	RelTol float64 `yaml:"rel_tol"`
	AbsTol float64 `yaml:"abs_tol"`
	// AbsTolVector, if set, gives one absolute tolerance per component.
	AbsTolVector []float64 `yaml:"abs_tol_vector,omitempty"`

	MaxStep     float64 `yaml:"max_step"`
	MinStep     float64 `yaml:"min_step"`
	InitialStep float64 `yaml:"initial_step"`

	Nonlinear NonlinearConfig `yaml:"nonlinear"`
	Backend   string          `yaml:"backend"`
	Workers   int             `yaml:"workers"`

	Solver bdf.Params `yaml:"solver"`
}

type NonlinearConfig struct {
	// Linear is "lu" or "bicgstab".
	Linear    string  `yaml:"linear"`
	MaxIter   int     `yaml:"max_iter"`
	LinearTol float64 `yaml:"linear_tol"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem: DefaultProblem,
		Size:    DefaultSize,
		Outputs: DefaultOutputs,
		RelTol:  DefaultRelTol,
		AbsTol:  DefaultAbsTol,
		Nonlinear: NonlinearConfig{
			Linear:    DefaultLinear,
			MaxIter:   3,
			LinearTol: 1e-10,
		},
		Backend: DefaultBackend,
		Solver:  bdf.DefaultParams(),
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(DefaultConfig(), path)
}

// LoadOver reads path on top of a copy of base, so keys missing from the
// file keep the values of base.
func LoadOver(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	if c.ProblemParams != nil {
		out.ProblemParams = make(map[string]float64, len(c.ProblemParams))
		for k, v := range c.ProblemParams {
			out.ProblemParams[k] = v
		}
	}
	out.AbsTolVector = append([]float64(nil), c.AbsTolVector...)
	return &out
}

func (c *Config) Validate() error {
	if c.Problem == "" {
		return fmt.Errorf("config: problem is required")
	}
	if c.Size < 1 {
		return fmt.Errorf("config: size must be positive, got %d", c.Size)
	}
	if c.Outputs < 1 {
		return fmt.Errorf("config: outputs must be positive, got %d", c.Outputs)
	}
	if c.TEnd < 0 {
		return fmt.Errorf("config: t_end must be non-negative, got %g", c.TEnd)
	}
	if c.AbsTol < 0 {
		return fmt.Errorf("config: abs_tol must be non-negative, got %g", c.AbsTol)
	}
	switch c.Nonlinear.Linear {
	case "lu", "bicgstab":
	default:
		return fmt.Errorf("config: unknown linear solver %q", c.Nonlinear.Linear)
	}
	return c.BDFConfig().Validate()
}

// BDFConfig returns the integrator settings.
func (c *Config) BDFConfig() bdf.Config {
	return bdf.Config{
		RelTol:      c.RelTol,
		MaxStep:     c.MaxStep,
		MinStep:     c.MinStep,
		InitialStep: c.InitialStep,
		Params:      c.Solver,
	}
}

// AbsTolerances expands the absolute tolerance to n components.
func (c *Config) AbsTolerances(n int) ([]float64, error) {
	if len(c.AbsTolVector) > 0 {
		if len(c.AbsTolVector) != n {
			return nil, fmt.Errorf("config: abs_tol_vector has %d entries, problem has %d components", len(c.AbsTolVector), n)
		}
		return append([]float64(nil), c.AbsTolVector...), nil
	}
	tol := make([]float64, n)
	for i := range tol {
		tol[i] = c.AbsTol
	}
	return tol, nil
}
