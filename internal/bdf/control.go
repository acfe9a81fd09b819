package bdf

import (
	"math"

	"github.com/san-kum/bdfsim/internal/ode"
)

// step takes one accepted internal step, retrying internally after
// nonlinear or error-test failures.
func (s *Solver) step(sys ode.System, ws *ode.Workspace) error {
	if err := s.beginStep(); err != nil {
		return err
	}

	nef, ncf := 0, 0
	var dsm float64
	for {
		s.zn.Predict(s.q)
		s.coef.Build(s.q, s.dt, s.pdt, s.qNextChange, s.p.NonlinCoef)

		if !s.solve(sys, ws) {
			ncf++
			s.stats.ConvFailures++
			if err := s.convFailure(ncf); err != nil {
				return err
			}
			continue
		}

		dsm = s.coef.Tq[2] * WeightedRMSNorm(s.be, s.acor, s.weights)
		if dsm <= s.p.Threshold {
			break
		}

		nef++
		s.stats.ErrTestFailures++
		if err := s.errorTestFailure(sys, ws, nef, dsm); err != nil {
			return err
		}
	}

	s.complete()
	if s.hasStop && s.reached(s.tstop) {
		s.t = s.tstop
	}
	s.prepareNext(dsm)
	s.etamx = s.p.EtaMax
	if s.nist <= s.p.SmallSteps {
		s.etamx = s.p.EtaMaxEarly
	}

	info := ode.StepInfo{
		Step:         s.nist,
		Time:         s.t,
		Dt:           s.dtUsed,
		DtNext:       s.dtNext,
		Order:        s.qUsed,
		OrderNext:    s.qNext,
		ErrorEst:     dsm,
		ErrTestFails: nef,
		ConvFails:    ncf,
	}
	for _, obs := range s.observers {
		obs.OnStep(info)
	}
	return nil
}

// beginStep applies the order and step size chosen after the previous
// step, shortens dt to land on the stop time and refreshes the error
// weights.
func (s *Solver) beginStep() error {
	if s.qNext != s.q {
		s.adjustOrder(s.qNext - s.q)
		s.logger.Debug("order change", "t", s.t, "from", s.q, "to", s.qNext)
		s.q = s.qNext
		s.qNextChange = s.q + 1
		s.stats.OrderChanges++
	}

	h := s.dtNext
	if s.hasStop && s.t+h > s.tstop {
		h = s.tstop - s.t
	}
	if h != s.dt {
		s.rescale(h / s.dt)
	}

	if err := EvalWeights(s.be, s.weights, s.zn.Col(0), s.absTol, s.relTol); err != nil {
		return s.fail(err)
	}
	return nil
}

// solve runs the nonlinear solver from the prediction and leaves the
// correction in acor.
func (s *Solver) solve(sys ode.System, ws *ode.Workspace) bool {
	s.adapter.refresh(sys, ws, s.t+s.dt, s.dt, s.coef.Gamma(s.dt), s.coef.Tq[4])
	s.be.Copy(s.ycur, s.zn.Col(0))

	st, err := s.nls.Solve(s.adapter, s.ycur)
	s.stats.NonlinSolves++
	s.stats.NonlinIters += st.Iterations
	if err != nil || !st.Converged {
		s.logger.Debug("nonlinear solve failed", "t", s.t, "dt", s.dt, "q", s.q,
			"iters", st.Iterations, "residual", st.ResidualNorm, "err", err)
		return false
	}
	s.be.LinearSum(s.acor, 1, s.ycur, -1, s.zn.Col(0))
	return true
}

func (s *Solver) convFailure(ncf int) error {
	s.zn.Restore(s.q)
	s.etamx = 1
	if ncf > s.p.MaxDtIter {
		return s.fail(ErrConvergenceBudget)
	}
	if s.atFloor() {
		return s.fail(ErrStepTooSmall)
	}
	s.rescale(math.Max(s.p.EtaConvFail, s.dtMin/s.dt))
	return nil
}

func (s *Solver) errorTestFailure(sys ode.System, ws *ode.Workspace, nef int, dsm float64) error {
	s.zn.Restore(s.q)
	s.etamx = 1
	s.logger.Debug("error test failed", "t", s.t, "dt", s.dt, "q", s.q, "dsm", dsm, "fails", nef)

	if s.atFloor() {
		return s.fail(ErrStepTooSmall)
	}
	if nef >= s.p.MaxErrTestFails {
		return s.fail(ErrErrorTestBudget)
	}

	if nef <= s.p.OrderDropFails {
		eta := 1 / (math.Pow(s.p.Bias2*dsm, 1/float64(s.q+1)) + s.p.AddOn)
		eta = math.Max(s.p.EtaMin, math.Max(math.Min(eta, 1), s.dtMin/s.dt))
		if nef >= s.p.SmallErrFails {
			eta = math.Min(eta, s.p.EtaMaxErrFail)
		}
		s.rescale(eta)
		return nil
	}

	eta := math.Max(s.p.EtaMin, s.dtMin/s.dt)
	if s.q > 1 {
		s.adjustOrder(-1)
		s.q--
		s.qNext = s.q
		s.qNextChange = s.q + 1
		s.stats.OrderChanges++
		s.rescale(eta)
		return nil
	}

	// At order one the history is rebuilt from F at the current state.
	s.dt *= eta
	s.dtNext = s.dt
	s.qNextChange = s.p.LongWait
	sys.Eval(s.t, s.zn.Col(0), ws.Fv)
	s.stats.RHSEvals++
	s.be.Scale(s.zn.Col(1), s.dt, ws.Fv)
	return nil
}

func (s *Solver) atFloor() bool {
	return s.dt <= s.dtMin*(1+uround)
}

func (s *Solver) rescale(eta float64) {
	s.zn.Rescale(s.q, eta)
	s.dt *= eta
	s.dtNext = s.dt
}

// adjustOrder changes the history from order q to q+deltaq.
func (s *Solver) adjustOrder(deltaq int) {
	if s.q == 2 && deltaq != 1 {
		return
	}
	l := s.coef.L
	switch deltaq {
	case 1:
		a1 := increaseCoeffs(s.q, s.dt, s.pdt, l)
		s.zn.Increase(s.q, a1, l)
	case -1:
		decreaseCoeffs(s.q, s.dt, s.pdt, l)
		s.zn.Decrease(s.q, l)
	}
}

func (s *Solver) complete() {
	s.nist++
	s.stats.Steps++
	for i := s.q; i >= 2; i-- {
		s.pdt[i-1] = s.pdt[i-2]
	}
	if s.q == 1 && s.nist > 1 {
		s.pdt[1] = s.pdt[0]
	}
	s.pdt[0] = s.dt

	s.zn.Correct(s.q, s.coef.L, s.acor)
	s.t += s.dt
	s.dtUsed = s.dt
	s.qUsed = s.q

	s.qNextChange--
	if s.qNextChange == 1 && s.q != s.p.QMax {
		s.zn.SaveCorrection(s.acor)
		s.savedTq5 = s.coef.Tq[5]
	}
}

// prepareNext chooses qNext and dtNext from the accepted step's error dsm.
func (s *Solver) prepareNext(dsm float64) {
	s.qNext = s.q
	if s.etamx == 1 {
		s.qNextChange = max(s.qNextChange, 2)
		s.eta = 1
		s.dtNext = s.dt
		return
	}

	etaq := 1 / (math.Pow(s.p.Bias2*dsm, 1/float64(s.q+1)) + s.p.AddOn)
	if s.qNextChange != 0 {
		s.eta = etaq
		s.setEta()
		return
	}

	s.qNextChange = 2
	etaqm1 := s.etaLower()
	etaqp1 := s.etaHigher()

	best := math.Max(etaqm1, math.Max(etaq, etaqp1))
	switch {
	case best < s.p.Threshold:
		s.eta = 1
	case best == etaq:
		s.eta = etaq
	case best == etaqm1:
		s.eta = etaqm1
		s.qNext = s.q - 1
	default:
		s.eta = etaqp1
		s.qNext = s.q + 1
		s.zn.SaveCorrection(s.acor)
	}
	s.setEta()
}

// etaLower is the step ratio admitted by the order q-1 error estimate.
func (s *Solver) etaLower() float64 {
	if s.q <= 1 {
		return 0
	}
	ddn := WeightedRMSNorm(s.be, s.zn.Col(s.q), s.weights) * s.coef.Tq[1]
	return 1 / (math.Pow(s.p.Bias1*ddn, 1/float64(s.q)) + s.p.AddOn)
}

// etaHigher is the step ratio admitted by the order q+1 error estimate.
func (s *Solver) etaHigher() float64 {
	if s.q == s.p.QMax || s.savedTq5 == 0 {
		return 0
	}
	cquot := (s.coef.Tq[5] / s.savedTq5) * math.Pow(s.dt/s.pdt[1], float64(s.q+1))
	s.be.LinearSum(s.tempv, -cquot, s.zn.Saved(), 1, s.acor)
	dup := WeightedRMSNorm(s.be, s.tempv, s.weights) * s.coef.Tq[3]
	return 1 / (math.Pow(s.p.Bias3*dup, 1/float64(s.q+2)) + s.p.AddOn)
}

func (s *Solver) setEta() {
	if s.eta < s.p.Threshold {
		s.eta = 1
	} else {
		s.eta = math.Min(s.eta, s.etamx)
		if s.dtMax > 0 {
			s.eta /= math.Max(1, s.dt*s.eta/s.dtMax)
		}
		s.eta = math.Max(s.eta, s.dtMin/s.dt)
	}
	s.dtNext = s.dt * s.eta
}
