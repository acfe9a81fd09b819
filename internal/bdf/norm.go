package bdf

import (
	"fmt"

	"github.com/san-kum/bdfsim/internal/compute"
)

// EvalWeights sets w_i = 1/(relTol*|y_i| + absTol_i).
func EvalWeights(be compute.Backend, w, y, absTol []float64, relTol float64) error {
	if err := be.Weights(w, y, absTol, relTol); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTolerance, err)
	}
	return nil
}

// WeightedRMSNorm returns sqrt(sum((v_i*w_i)^2)/n).
func WeightedRMSNorm(be compute.Backend, v, w []float64) float64 {
	return be.WeightedRMS(v, w)
}
