package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/bdfsim/internal/config"
	"github.com/san-kum/bdfsim/internal/experiment"
	"github.com/san-kum/bdfsim/internal/ode"
)

const (
	historyLen = 120
	maxOrder   = 5
)

// StepMsg carries one accepted integrator step.
type StepMsg ode.StepInfo

// DoneMsg ends a live run.
type DoneMsg struct {
	Result *experiment.Result
	Err    error
}

// Observer forwards accepted steps to a running program.
func Observer(send func(tea.Msg)) ode.StepObserver {
	return ode.ObserverFunc(func(info ode.StepInfo) { send(StepMsg(info)) })
}

type LiveModel struct {
	problem string
	tend    float64

	last       ode.StepInfo
	steps      int
	errFails   int
	convFails  int
	logDt      []float64
	orderCount [maxOrder]int

	done   bool
	result *experiment.Result
	err    error

	width int
}

func NewLive(problem string, tend float64) LiveModel {
	return LiveModel{
		problem: problem,
		tend:    tend,
		logDt:   make([]float64, 0, historyLen),
		width:   80,
	}
}

func (m LiveModel) Init() tea.Cmd { return nil }

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case StepMsg:
		m.last = ode.StepInfo(msg)
		m.steps++
		m.errFails += msg.ErrTestFails
		m.convFails += msg.ConvFails
		if msg.Order >= 1 && msg.Order <= len(m.orderCount) {
			m.orderCount[msg.Order-1]++
		}
		if msg.Dt > 0 {
			m.logDt = append(m.logDt, math.Log10(msg.Dt))
			if len(m.logDt) > historyLen {
				m.logDt = m.logDt[1:]
			}
		}
	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
	}
	return m, nil
}

// Steps is the number of accepted steps seen so far.
func (m LiveModel) Steps() int { return m.steps }

func (m LiveModel) Done() bool { return m.done }

func (m LiveModel) progress() float64 {
	if m.tend <= 0 {
		return 0
	}
	return math.Min(m.last.Time/m.tend, 1)
}

func progressBar(frac float64, width int) string {
	filled := int(frac * float64(width))
	return green.Render(strings.Repeat("█", filled)) + dimmer.Render(strings.Repeat("░", width-filled))
}

func (m LiveModel) View() string {
	var b strings.Builder

	b.WriteString("\n  " + cyan.Bold(true).Render("bdfsim") + dim.Render(" · ") + white.Render(m.problem) + "\n\n")

	frac := m.progress()
	b.WriteString(fmt.Sprintf("  %s %s %s  %s %3.0f%%\n",
		dim.Render("t"), white.Render(fmt.Sprintf("%.4e", m.last.Time)),
		dim.Render(fmt.Sprintf("/ %.4e", m.tend)), progressBar(frac, 30), 100*frac))

	b.WriteString(fmt.Sprintf("  %s %s  %s %s  %s %s  %s %s\n",
		dim.Render("step"), white.Render(fmt.Sprintf("%d", m.steps)),
		dim.Render("order"), orderStyle(m.last.Order).Render(fmt.Sprintf("%d", m.last.Order)),
		dim.Render("dt"), white.Render(fmt.Sprintf("%.3e", m.last.Dt)),
		dim.Render("err"), white.Render(fmt.Sprintf("%.3f", m.last.ErrorEst))))

	failStyle := dim
	if m.errFails+m.convFails > 0 {
		failStyle = yellow
	}
	b.WriteString(fmt.Sprintf("  %s\n\n", failStyle.Render(fmt.Sprintf("error test fails %d  convergence fails %d", m.errFails, m.convFails))))

	if len(m.logDt) >= 2 {
		width := m.width - 16
		if width > historyLen {
			width = historyLen
		}
		if width < 20 {
			width = 20
		}
		graph := asciigraph.Plot(m.logDt,
			asciigraph.Height(8),
			asciigraph.Width(width),
			asciigraph.Caption("log10(dt)"),
			asciigraph.Offset(4))
		b.WriteString(magenta.Render(graph) + "\n\n")
	}

	b.WriteString("  " + dim.Render("orders ") + m.orderHistogram() + "\n\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString("  " + red.Render("failed: "+m.err.Error()) + "\n")
	case m.done && m.result != nil:
		st := m.result.Stats
		b.WriteString("  " + green.Render(fmt.Sprintf("done in %v", m.result.Elapsed)) +
			dim.Render(fmt.Sprintf("  rhs %d  jac %d  newton %d", st.RHSEvals, st.JacEvals, st.NonlinIters)) + "\n")
	case m.done:
		b.WriteString("  " + green.Render("done") + "\n")
	}
	b.WriteString("  " + dimmer.Render("[q] quit") + "\n")
	return b.String()
}

func orderStyle(q int) lipgloss.Style {
	if q < 1 || q > len(orderColors) {
		return white
	}
	return lipgloss.NewStyle().Foreground(orderColors[q-1]).Bold(true)
}

func (m LiveModel) orderHistogram() string {
	total := 0
	for _, c := range m.orderCount {
		total += c
	}
	var parts []string
	for i, c := range m.orderCount {
		bar := 0
		if total > 0 {
			bar = int(math.Round(10 * float64(c) / float64(total)))
		}
		parts = append(parts, orderStyle(i+1).Render(fmt.Sprintf("q%d", i+1))+" "+
			orderStyle(i+1).Render(strings.Repeat("■", bar))+dimmer.Render(strings.Repeat("·", 10-bar)))
	}
	return strings.Join(parts, "  ")
}

// RunLive integrates cfg while rendering the step history. Quitting the
// view cancels the integration; the partial result is still returned.
func RunLive(ctx context.Context, cfg *config.Config, registry *experiment.Registry, opts ...experiment.Option) (*experiment.Result, error) {
	var p *tea.Program
	send := func(msg tea.Msg) { p.Send(msg) }

	exp := experiment.New(cfg, registry, append(opts, experiment.WithObserver(Observer(send)))...)
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	p = tea.NewProgram(NewLive(cfg.Problem, exp.TEnd()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		res *experiment.Result
		err error
	}
	out := make(chan outcome, 1)
	go func() {
		res, err := exp.Run(ctx)
		p.Send(DoneMsg{Result: res, Err: err})
		out <- outcome{res, err}
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-out
		return nil, err
	}
	cancel()
	o := <-out
	return o.res, o.err
}
