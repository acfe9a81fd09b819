package compute

import (
	"errors"
	"fmt"
)

// ErrNonPositiveTolerance is returned by Weights when relTol*|y_i| + absTol_i <= 0.
var ErrNonPositiveTolerance = errors.New("compute: non-positive error weight denominator")

type Backend interface {
	Name() string
	Available() bool
	Copy(dst, src []float64)
	// Scale computes dst = a*x.
	Scale(dst []float64, a float64, x []float64)
	// Axpy computes dst += a*x.
	Axpy(dst []float64, a float64, x []float64)
	// LinearSum computes dst = a*x + b*y. dst may alias x or y.
	LinearSum(dst []float64, a float64, x []float64, b float64, y []float64)
	// Weights computes dst_i = 1/(relTol*|y_i| + absTol_i).
	Weights(dst, y, absTol []float64, relTol float64) error
	// WeightedRMS returns sqrt(sum((x_i*w_i)^2)/n).
	WeightedRMS(x, w []float64) float64
	// MaxNorm returns max |x_i*w_i|.
	MaxNorm(x, w []float64) float64
	Cleanup()
}

func AutoSelectBackend() Backend {
	return NewCPUBackend()
}

// ByName returns a backend by its configuration name. workers <= 0 selects
// one worker per CPU.
func ByName(name string, workers int) (Backend, error) {
	switch name {
	case "", "auto":
		return AutoSelectBackend(), nil
	case "cpu":
		if workers > 0 {
			return NewCPUBackendWorkers(workers), nil
		}
		return NewCPUBackend(), nil
	case "serial":
		return NewCPUBackendWorkers(1), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
}

func ListBackends() []string {
	return []string{"auto", "cpu", "serial"}
}
