package bdf

import "math"

// Coefficients are the L-polynomial and error-control constants of one
// step attempt at order q. They are rebuilt before every prediction.
type Coefficients struct {
	// L is the L-polynomial; entries beyond q are zero.
	L []float64
	// Tq holds the error-control coefficients, indexed 1..5:
	// Tq[1] order q-1, Tq[2] order q, Tq[3] order q+1,
	// Tq[4] nonlinear convergence tolerance, Tq[5] the order q+1 history ratio.
	Tq [6]float64

	XiInv     float64
	XiStarInv float64
	DtSum     float64
	Alpha0    float64
	Alpha0Hat float64
}

func newCoefficients(qmax int) Coefficients {
	return Coefficients{L: make([]float64, qmax+1)}
}

// Build fills c for order q, current step dt and accepted-step history
// pdt (pdt[0] is the most recent step). When qNextChange is 1 the order
// q-1 and q+1 coefficients Tq[1] and Tq[3] are produced as well.
func (c *Coefficients) Build(q int, dt float64, pdt []float64, qNextChange int, nonlinCoef float64) {
	l := c.L
	for i := range l {
		l[i] = 0
	}
	l[0], l[1] = 1, 1
	xiInv, xiStarInv := 1.0, 1.0
	alpha0, alpha0Hat := -1.0, -1.0
	dtSum := dt

	if q > 1 {
		for j := 2; j < q; j++ {
			dtSum += pdt[j-2]
			xiInv = dt / dtSum
			alpha0 -= 1 / float64(j)
			for i := j; i >= 1; i-- {
				l[i] += l[i-1] * xiInv
			}
		}

		alpha0 -= 1 / float64(q)
		xiStarInv = -l[1] - alpha0
		dtSum += pdt[q-2]
		xiInv = dt / dtSum
		alpha0Hat = -l[1] - xiInv
		for i := q; i >= 1; i-- {
			l[i] += l[i-1] * xiStarInv
		}
	}

	c.XiInv, c.XiStarInv = xiInv, xiStarInv
	c.DtSum = dtSum
	c.Alpha0, c.Alpha0Hat = alpha0, alpha0Hat
	c.buildTq(q, dt, pdt, qNextChange, nonlinCoef)
}

func (c *Coefficients) buildTq(q int, dt float64, pdt []float64, qNextChange int, nonlinCoef float64) {
	l := c.L
	alpha0, alpha0Hat := c.Alpha0, c.Alpha0Hat
	xiInv, xiStarInv := c.XiInv, c.XiStarInv
	fq := float64(q)

	a1 := 1 - alpha0Hat + alpha0
	a2 := 1 + fq*a1
	c.Tq[2] = math.Abs(a1 / (alpha0 * a2))
	c.Tq[5] = math.Abs(a2 * xiStarInv / (l[q] * xiInv))

	if qNextChange == 1 {
		if q > 1 {
			cc := xiStarInv / l[q]
			a3 := alpha0 + 1/fq
			a4 := alpha0Hat + xiInv
			cpInv := (1 - a4 + a3) / a3
			c.Tq[1] = math.Abs(cc * cpInv)
		} else {
			c.Tq[1] = 1
		}
		dtSum := c.DtSum + pdt[q-1]
		xi := dt / dtSum
		a5 := alpha0 - 1/(fq+1)
		a6 := alpha0Hat - xi
		cppInv := (1 - a6 + a5) / a2
		c.Tq[3] = math.Abs(cppInv / (xi * (fq + 2) * a5))
	}
	c.Tq[4] = nonlinCoef / c.Tq[2]
}

// Gamma is the implicit coupling dt/L[1] of the corrector.
func (c *Coefficients) Gamma(dt float64) float64 {
	return dt / c.L[1]
}

// increaseCoeffs fills l[2..q] for raising the order from q to q+1 and
// returns the factor seeding the new history column from the saved
// correction.
func increaseCoeffs(q int, dt float64, pdt, l []float64) float64 {
	for i := range l {
		l[i] = 0
	}
	l[2] = 1
	alpha0, alpha1 := -1.0, 1.0
	prod, xiOld := 1.0, 1.0
	dtSum := dt
	for j := 1; j < q; j++ {
		dtSum += pdt[j]
		xi := dtSum / dt
		prod *= xi
		alpha0 -= 1 / float64(j+1)
		alpha1 += 1 / xi
		for i := j + 2; i >= 2; i-- {
			l[i] = l[i]*xiOld + l[i-1]
		}
		xiOld = xi
	}
	return (-alpha0 - alpha1) / prod
}

// decreaseCoeffs fills l[2..q-1] for lowering the order from q to q-1.
func decreaseCoeffs(q int, dt float64, pdt, l []float64) {
	for i := range l {
		l[i] = 0
	}
	l[2] = 1
	dtSum := 0.0
	for j := 1; j <= q-2; j++ {
		dtSum += pdt[j-1]
		xi := dtSum / dt
		for i := j + 2; i >= 2; i-- {
			l[i] = l[i]*xi + l[i-1]
		}
	}
}
