package bdf_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/bdfsim/internal/bdf"
	"github.com/san-kum/bdfsim/internal/nonlinear"
	"github.com/san-kum/bdfsim/internal/ode"
	"github.com/san-kum/bdfsim/internal/problems"
)

type recorder struct {
	steps []ode.StepInfo
}

func (r *recorder) OnStep(info ode.StepInfo) { r.steps = append(r.steps, info) }

func tolerances(n int, v float64) []float64 {
	tol := make([]float64, n)
	for i := range tol {
		tol[i] = v
	}
	return tol
}

var _ = Describe("Step controller", func() {
	var (
		cfg bdf.Config
		rec *recorder
		ctx context.Context
	)

	BeforeEach(func() {
		cfg = bdf.DefaultConfig()
		cfg.RelTol = 1e-6
		rec = &recorder{}
		ctx = context.Background()
	})

	integrate := func(p problems.Problem, tend float64) *bdf.Solver {
		s, err := bdf.New(p.Initial(), tolerances(p.Dim(), 1e-9),
			nonlinear.NewNewton(nonlinear.NewDenseLU()), cfg, bdf.WithObserver(rec))
		Expect(err).NotTo(HaveOccurred())
		y := make([]float64, p.Dim())
		Expect(s.Compute(ctx, p, bdf.NewWorkspace(p.Dim()), y, tend)).To(Succeed())
		return s
	}

	Context("on the first step", func() {
		It("starts at order one with a step inside the interval", func() {
			p := problems.NewVanDerPol(1)
			s, err := bdf.New(p.Initial(), tolerances(2, 1e-9), nonlinear.NewNewton(nonlinear.NewDenseLU()), cfg, bdf.WithObserver(rec))
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Step(ctx, p, bdf.NewWorkspace(2), 1)).To(Succeed())
			Expect(rec.steps).To(HaveLen(1))
			first := rec.steps[0]
			Expect(first.Order).To(Equal(1))
			Expect(first.Dt).To(BeNumerically(">", 0))
			Expect(first.Dt).To(BeNumerically("<=", 0.1))
			Expect(s.Stats().InitialStep).To(Equal(first.Dt))
			Expect(s.Time()).To(BeNumerically("~", first.Dt, 1e-15))
		})

		It("honours a configured initial step", func() {
			cfg.InitialStep = 1e-3
			p := problems.NewDecay(1, 1)
			integrate(p, 0.01)
			Expect(rec.steps[0].Dt).To(Equal(1e-3))
		})
	})

	Context("after an accepted step", func() {
		It("limits growth to EtaMaxFirst and then EtaMaxEarly", func() {
			integrate(problems.NewDecay(3, 100), 1)
			for _, info := range rec.steps {
				limit := cfg.Params.EtaMaxEarly
				if info.Step == 1 {
					limit = cfg.Params.EtaMaxFirst
				}
				Expect(info.DtNext).To(BeNumerically("<=", limit*info.Dt*(1+1e-12)))
			}
		})

		It("keeps the step size after a step that needed retries", func() {
			cfg.InitialStep = 0.5
			integrate(problems.NewDecay(3, 1000), 1)
			retried := 0
			for _, info := range rec.steps {
				if info.ErrTestFails > 0 || info.ConvFails > 0 {
					retried++
					Expect(info.DtNext).To(Equal(info.Dt))
					Expect(info.OrderNext).To(Equal(info.Order))
				}
			}
			Expect(retried).To(BeNumerically(">", 0))
		})

		It("changes order by at most one per step and stays within QMax", func() {
			cfg.Params.QMax = 4
			integrate(problems.NewRobertson(), 10)
			for _, info := range rec.steps {
				Expect(info.Order).To(BeNumerically(">=", 1))
				Expect(info.OrderNext).To(BeNumerically("<=", 4))
				Expect(math.Abs(float64(info.OrderNext - info.Order))).To(BeNumerically("<=", 1))
			}
		})

		It("accepts only steps whose error estimate passes the threshold", func() {
			integrate(problems.NewBrusselator1D(8), 2)
			for _, info := range rec.steps {
				Expect(info.ErrorEst).To(BeNumerically("<=", cfg.Params.Threshold))
			}
		})
	})

	Context("at the end of the interval", func() {
		It("steps past tmax and interpolates back", func() {
			p := problems.NewDecay(1, 1)
			s := integrate(p, 0.3)
			Expect(s.Time()).To(BeNumerically(">=", 0.3))
			last := rec.steps[len(rec.steps)-1]
			Expect(last.Time - last.Dt).To(BeNumerically("<", 0.3))

			y := make([]float64, 1)
			Expect(s.Interpolate(0.3, y)).To(Succeed())
			Expect(y[0]).To(BeNumerically("~", math.Exp(-0.3), 1e-5))
		})

		It("lands exactly on a stop time", func() {
			p := problems.NewHeat1D(6, 0.5)
			s, err := bdf.New(p.Initial(), tolerances(p.Dim(), 1e-9),
				nonlinear.NewNewton(nonlinear.NewDenseLU()), cfg, bdf.WithObserver(rec), bdf.WithStopTime(0.3))
			Expect(err).NotTo(HaveOccurred())
			y := make([]float64, p.Dim())
			Expect(s.Compute(ctx, p, bdf.NewWorkspace(p.Dim()), y, 0.3)).To(Succeed())

			Expect(s.Time()).To(Equal(0.3))
			Expect(rec.steps[len(rec.steps)-1].Time).To(Equal(0.3))
		})
	})

	DescribeTable("reports exhausted budgets as IntegrationError",
		func(mutate func(*bdf.Config), want error) {
			mutate(&cfg)
			p := problems.NewDecay(2, 10)
			s, err := bdf.New(p.Initial(), tolerances(2, 1e-9), nonlinear.NewNewton(nonlinear.NewDenseLU()), cfg)
			Expect(err).NotTo(HaveOccurred())

			err = s.Compute(ctx, p, bdf.NewWorkspace(2), make([]float64, 2), 50)
			Expect(err).To(MatchError(want))
			var ie *bdf.IntegrationError
			Expect(err).To(BeAssignableToTypeOf(ie))
		},
		Entry("step budget", func(c *bdf.Config) { c.Params.MaxSteps = 3 }, bdf.ErrStepBudget),
		Entry("error test budget", func(c *bdf.Config) { c.Params.Threshold = 1e-300 }, bdf.ErrErrorTestBudget),
	)
})
