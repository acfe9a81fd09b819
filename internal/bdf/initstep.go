package bdf

import (
	"fmt"
	"math"

	"github.com/san-kum/bdfsim/internal/ode"
)

// firstStep seeds the history with y0 and F(t0, y0), picks dt0 and resets
// the controller to order one.
func (s *Solver) firstStep(sys ode.System, ws *ode.Workspace, tmax float64) error {
	tdist := tmax - s.t
	tround := uround * math.Max(math.Abs(s.t), math.Abs(tmax))
	if tdist <= 0 || tdist < 2*tround {
		return s.fail(ErrTooClose)
	}

	y0 := s.zn.Col(0)
	if err := EvalWeights(s.be, s.weights, y0, s.absTol, s.relTol); err != nil {
		return s.fail(err)
	}
	sys.Eval(s.t, y0, ws.Fv)
	s.stats.RHSEvals++
	if !ode.State(ws.Fv).IsValid() {
		return s.fail(fmt.Errorf("%w: F(t0, y0)", ode.ErrInvalidState))
	}
	s.be.Copy(s.zn.Col(1), ws.Fv)

	s.dtMin = math.Max(s.minDt, s.p.DtLowerBoundFactor*tround)
	s.dtMax = s.maxDt

	h0 := s.initDt
	if h0 <= 0 {
		var err error
		h0, err = s.estimateFirstStep(sys, ws, tdist, tround)
		if err != nil {
			return s.fail(err)
		}
	}
	if s.dtMax > 0 && h0 > s.dtMax {
		h0 = s.dtMax
	}
	if h0 < s.dtMin {
		h0 = s.dtMin
	}
	if h0 > tdist {
		h0 = tdist
	}

	s.be.Scale(s.zn.Col(1), h0, s.zn.Col(1))
	s.dt, s.dtNext = h0, h0
	s.q, s.qNext = 1, 1
	s.qNextChange = 2
	s.etamx = s.p.EtaMaxFirst
	s.savedTq5 = 0
	for i := range s.pdt {
		s.pdt[i] = 0
	}
	s.stats.InitialStep = h0
	s.started = true

	s.logger.Debug("first step", "t0", s.t, "tmax", tmax, "dt0", h0, "dtMin", s.dtMin)
	return nil
}

// upperBoundFirstTimeStep bounds dt0 by a fraction of the interval and by
// the step that would change any component by more than its scale.
// zn[1] must hold F(t0, y0).
func (s *Solver) upperBoundFirstTimeStep(tdist float64) (float64, error) {
	if err := EvalWeights(s.be, s.tempv, s.zn.Col(0), s.absTol, s.p.DtUpperBoundFactor); err != nil {
		return 0, err
	}
	hubInv := s.be.MaxNorm(s.zn.Col(1), s.tempv)
	hub := s.p.DtUpperBoundFactor * tdist
	if hub*hubInv > 1 {
		hub = 1 / hubInv
	}
	return hub, nil
}

// estimateFirstStep iterates on a finite-difference estimate of the
// second derivative, aiming at a step whose local error is about one.
func (s *Solver) estimateFirstStep(sys ode.System, ws *ode.Workspace, tdist, tround float64) (float64, error) {
	hlb := s.p.DtLowerBoundFactor * tround
	hub, err := s.upperBoundFirstTimeStep(tdist)
	if err != nil {
		return 0, err
	}

	hg := math.Sqrt(hlb * hub)
	if hub < hlb {
		return hg, nil
	}

	var hnew float64
	hs := hg
	hnewOK := false
	for count1 := 1; count1 <= s.p.InitIters; count1++ {
		var yddnrm float64
		hgOK := false
		for count2 := 1; count2 <= s.p.InitIters; count2++ {
			yddnrm = s.secondDerivativeNorm(sys, ws, hg)
			if !math.IsNaN(yddnrm) && !math.IsInf(yddnrm, 0) {
				hgOK = true
				break
			}
			hg *= 0.2
		}
		if !hgOK {
			if count1 <= 2 {
				return 0, fmt.Errorf("%w: F not finite near t0", ode.ErrInvalidState)
			}
			hnew = hs
			break
		}

		hs = hg
		if hnewOK || count1 == s.p.InitIters {
			hnew = hg
			break
		}

		if yddnrm*hub*hub > 2 {
			hnew = math.Sqrt(2 / yddnrm)
		} else {
			hnew = math.Sqrt(hg * hub)
		}
		hrat := hnew / hg
		if hrat > 0.5 && hrat < 2 {
			hnewOK = true
		}
		if count1 > 1 && hrat > 2 {
			hnew = hg
			hnewOK = true
		}
		hg = hnew
	}

	h0 := s.p.InitBias * hnew
	return math.Min(math.Max(h0, hlb), hub), nil
}

// secondDerivativeNorm returns ||(F(t0+h, y0+h*f0) - f0)/h|| with zn[1] = f0.
// The difference quotient is built in ws.D.
func (s *Solver) secondDerivativeNorm(sys ode.System, ws *ode.Workspace, h float64) float64 {
	s.be.LinearSum(s.ycur, h, s.zn.Col(1), 1, s.zn.Col(0))
	sys.Eval(s.t+h, s.ycur, ws.Fv)
	s.stats.RHSEvals++
	s.be.LinearSum(ws.D, 1, ws.Fv, -1, s.zn.Col(1))
	s.be.Scale(ws.D, 1/h, ws.D)
	return WeightedRMSNorm(s.be, ws.D, s.weights)
}
