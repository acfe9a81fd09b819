package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/bdfsim/internal/bdf"
	"github.com/san-kum/bdfsim/internal/experiment"
	"github.com/san-kum/bdfsim/internal/ode"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func feed(m tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func TestLiveCountsSteps(t *testing.T) {
	m := feed(NewLive("robertson", 40),
		StepMsg{Step: 1, Time: 1e-4, Dt: 1e-4, Order: 1, ErrorEst: 0.2},
		StepMsg{Step: 2, Time: 3e-4, Dt: 2e-4, Order: 2, ErrorEst: 0.5, ErrTestFails: 1},
		StepMsg{Step: 3, Time: 20, Dt: 1, Order: 2, ErrorEst: 0.9, ConvFails: 2},
	).(LiveModel)

	if m.Steps() != 3 {
		t.Errorf("steps = %d, want 3", m.Steps())
	}
	if m.orderCount[0] != 1 || m.orderCount[1] != 2 {
		t.Errorf("order counts %v", m.orderCount)
	}
	if m.errFails != 1 || m.convFails != 2 {
		t.Errorf("fails %d/%d", m.errFails, m.convFails)
	}
	if got := m.progress(); got != 0.5 {
		t.Errorf("progress = %v, want 0.5", got)
	}

	view := m.View()
	for _, want := range []string{"robertson", "step", "log10(dt)", "convergence fails 2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLiveDone(t *testing.T) {
	res := &experiment.Result{Stats: bdf.Stats{RHSEvals: 42}, Elapsed: time.Millisecond}
	m := feed(NewLive("heat", 1), DoneMsg{Result: res}).(LiveModel)
	if !m.Done() {
		t.Fatal("expected done")
	}
	if !strings.Contains(m.View(), "rhs 42") {
		t.Errorf("view missing stats: %s", m.View())
	}

	m = feed(NewLive("heat", 1), DoneMsg{Err: errors.New("step size too small")}).(LiveModel)
	if !strings.Contains(m.View(), "failed: step size too small") {
		t.Error("view missing failure")
	}
}

func TestLiveQuit(t *testing.T) {
	_, cmd := NewLive("decay", 1).Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestLiveZeroEnd(t *testing.T) {
	m := feed(NewLive("decay", 0), StepMsg{Time: 1, Dt: 0.1, Order: 1}).(LiveModel)
	if m.progress() != 0 {
		t.Errorf("progress with zero end time = %v", m.progress())
	}
}

func TestObserverSends(t *testing.T) {
	var got []tea.Msg
	obs := Observer(func(msg tea.Msg) { got = append(got, msg) })
	obs.OnStep(ode.StepInfo{Step: 7, Order: 3})
	if len(got) != 1 {
		t.Fatalf("expected one message, got %d", len(got))
	}
	if msg, ok := got[0].(StepMsg); !ok || msg.Step != 7 || msg.Order != 3 {
		t.Errorf("unexpected message %#v", got[0])
	}
}

func TestMenuSelectsPreset(t *testing.T) {
	problems := []string{"brusselator", "heat", "robertson"}
	m := feed(NewMenu(problems),
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyEnter}, // heat
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyEnter}, // fine
	).(MenuModel)

	if m.state != stateSettings {
		t.Fatalf("expected settings screen, got %v", m.state)
	}
	if m.Config() != nil {
		t.Error("config returned before start")
	}

	next, cmd := m.Update(runes("s"))
	cfg := next.(MenuModel).Config()
	if cmd == nil || cfg == nil {
		t.Fatal("expected start to quit with a config")
	}
	if cfg.Problem != "heat" || cfg.Nonlinear.Linear != "bicgstab" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestMenuEditsSettings(t *testing.T) {
	m := feed(NewMenu([]string{"decay"}),
		tea.KeyMsg{Type: tea.KeyEnter},
		tea.KeyMsg{Type: tea.KeyEnter}, // default preset
		tea.KeyMsg{Type: tea.KeyDown},  // rel_tol
		tea.KeyMsg{Type: tea.KeyEnter},
	).(MenuModel)
	if !m.editing {
		t.Fatal("expected edit mode")
	}

	for range m.editBuf {
		m = feed(m, tea.KeyMsg{Type: tea.KeyBackspace}).(MenuModel)
	}
	m = feed(m, runes("1"), runes("e"), runes("-"), runes("4"), tea.KeyMsg{Type: tea.KeyEnter}).(MenuModel)
	if m.cfg.RelTol != 1e-4 {
		t.Errorf("rel_tol = %v, want 1e-4", m.cfg.RelTol)
	}

	m = feed(m, tea.KeyMsg{Type: tea.KeyEnter}, runes("x"), runes("-"), runes("1"), tea.KeyMsg{Type: tea.KeyEnter}).(MenuModel)
	if m.editErr == "" {
		t.Error("expected error for malformed rel_tol")
	}
	if m.cfg.RelTol != 1e-4 {
		t.Errorf("invalid edit applied: rel_tol = %v", m.cfg.RelTol)
	}
	if !strings.Contains(m.View(), "rel_tol") {
		t.Error("settings view missing field")
	}
}

func TestMenuQuit(t *testing.T) {
	m, cmd := NewMenu([]string{"decay"}).Update(runes("q"))
	if cmd == nil || m.(MenuModel).Config() != nil {
		t.Error("expected quit without config")
	}
}
