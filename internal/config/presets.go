package config

import "sort"

func preset(mutate func(c *Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

var Presets = map[string]map[string]*Config{
	"robertson": {
		"standard": preset(func(c *Config) {
			c.Problem, c.TEnd = "robertson", 40
			c.RelTol, c.AbsTolVector = 1e-4, []float64{1e-8, 1e-14, 1e-6}
		}),
		"long": preset(func(c *Config) {
			c.Problem, c.TEnd, c.Outputs = "robertson", 4e10, 400
			c.RelTol, c.AbsTolVector = 1e-4, []float64{1e-8, 1e-14, 1e-6}
		}),
	},
	"vanderpol": {
		"mild": preset(func(c *Config) {
			c.Problem, c.TEnd = "vanderpol", 20
			c.ProblemParams = map[string]float64{"mu": 1}
		}),
		"stiff": preset(func(c *Config) {
			c.Problem, c.TEnd = "vanderpol", 3000
			c.ProblemParams = map[string]float64{"mu": 1000}
			c.RelTol, c.AbsTol = 1e-5, 1e-8
		}),
	},
	"heat": {
		"coarse": preset(func(c *Config) {
			c.Problem, c.Size, c.TEnd = "heat", 16, 0.5
		}),
		"fine": preset(func(c *Config) {
			c.Problem, c.Size, c.TEnd = "heat", 400, 0.5
			c.Nonlinear.Linear = "bicgstab"
		}),
	},
	"brusselator": {
		"small": preset(func(c *Config) {
			c.Problem, c.Size, c.TEnd = "brusselator", 20, 10
		}),
		"large": preset(func(c *Config) {
			c.Problem, c.Size, c.TEnd = "brusselator", 500, 10
			c.Nonlinear.Linear = "bicgstab"
			c.Workers = 4
		}),
	},
	"decay": {
		"stiff": preset(func(c *Config) {
			c.Problem, c.Size, c.TEnd = "decay", 8, 1
			c.ProblemParams = map[string]float64{"stiffness": 1e6}
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(problem, name string) *Config {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	cfg, ok := problemPresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(problem string) []string {
	problemPresets, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(problemPresets))
	for name := range problemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
