package experiment

import (
	"context"
	"sync"

	"github.com/san-kum/bdfsim/internal/config"
	"github.com/san-kum/bdfsim/internal/problems"
)

// Outcome is the result of one member of an ensemble. Problem is nil when
// setup failed.
type Outcome struct {
	Config  *config.Config
	Problem problems.Problem
	Result  *Result
	Err     error
}

// Ensemble runs independent configurations concurrently, each with its
// own problem and solver.
type Ensemble struct {
	registry *Registry
	configs  []*config.Config
	opts     []Option
}

func NewEnsemble(registry *Registry, configs []*config.Config, opts ...Option) *Ensemble {
	return &Ensemble{registry: registry, configs: configs, opts: opts}
}

// Run returns one outcome per configuration, in order. Failures are
// reported per member and never stop the others.
func (e *Ensemble) Run(ctx context.Context) []Outcome {
	out := make([]Outcome, len(e.configs))

	var wg sync.WaitGroup
	for i, cfg := range e.configs {
		wg.Add(1)
		go func(idx int, cfg *config.Config) {
			defer wg.Done()

			out[idx].Config = cfg
			exp := New(cfg, e.registry, e.opts...)
			if err := exp.Setup(); err != nil {
				out[idx].Err = err
				return
			}
			out[idx].Problem = exp.Problem()
			out[idx].Result, out[idx].Err = exp.Run(ctx)
		}(i, cfg)
	}

	wg.Wait()
	return out
}
