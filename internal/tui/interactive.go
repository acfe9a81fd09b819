package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/bdfsim/internal/config"
)

var problemInfo = map[string]string{
	"robertson":   "chemical kinetics, 3 species",
	"vanderpol":   "relaxation oscillator",
	"heat":        "1d diffusion, method of lines",
	"brusselator": "1d reaction-diffusion",
	"decay":       "independent exponential decays",
	"linear":      "constant coefficient system",
	"constant":    "y' = c",
}

type menuState int

const (
	stateProblem menuState = iota
	statePreset
	stateSettings
)

const defaultPreset = "default"

// fields are the settings editable before a run.
var fields = []string{"t_end", "rel_tol", "abs_tol", "size", "outputs"}

// MenuModel picks a problem, a preset and the tolerances for a live run.
type MenuModel struct {
	state    menuState
	problems []string
	cursor   int
	problem  string
	presets  []string

	cfg         *config.Config
	fieldCursor int
	editing     bool
	editBuf     string
	editErr     string

	chosen   bool
	quitting bool
}

func NewMenu(problems []string) MenuModel {
	return MenuModel{problems: problems}
}

func (m MenuModel) Init() tea.Cmd { return nil }

// Config is the selected configuration, or nil if the menu was left.
func (m MenuModel) Config() *config.Config {
	if !m.chosen {
		return nil
	}
	return m.cfg
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	switch m.state {
	case stateProblem:
		return m.problemKey(key)
	case statePreset:
		return m.presetKey(key)
	case stateSettings:
		return m.settingsKey(key)
	}
	return m, nil
}

func moveCursor(cursor, n int, key string) int {
	switch key {
	case "up", "k":
		if cursor > 0 {
			cursor--
		}
	case "down", "j":
		if cursor < n-1 {
			cursor++
		}
	}
	return cursor
}

func (m MenuModel) problemKey(msg tea.KeyMsg) (MenuModel, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter", " ":
		m.problem = m.problems[m.cursor]
		m.presets = append([]string{defaultPreset}, config.ListPresets(m.problem)...)
		m.cursor = 0
		m.state = statePreset
	default:
		m.cursor = moveCursor(m.cursor, len(m.problems), msg.String())
	}
	return m, nil
}

func (m MenuModel) presetKey(msg tea.KeyMsg) (MenuModel, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.state = stateProblem
		m.cursor = 0
	case "enter", " ":
		var cfg *config.Config
		if name := m.presets[m.cursor]; name != defaultPreset {
			cfg = config.GetPreset(m.problem, name)
		}
		if cfg == nil {
			cfg = config.DefaultConfig()
			cfg.Problem = m.problem
		}
		m.cfg = cfg
		m.fieldCursor = 0
		m.state = stateSettings
	default:
		m.cursor = moveCursor(m.cursor, len(m.presets), msg.String())
	}
	return m, nil
}

func (m MenuModel) fieldValue(name string) string {
	switch name {
	case "t_end":
		return strconv.FormatFloat(m.cfg.TEnd, 'g', -1, 64)
	case "rel_tol":
		return strconv.FormatFloat(m.cfg.RelTol, 'g', -1, 64)
	case "abs_tol":
		return strconv.FormatFloat(m.cfg.AbsTol, 'g', -1, 64)
	case "size":
		return strconv.Itoa(m.cfg.Size)
	case "outputs":
		return strconv.Itoa(m.cfg.Outputs)
	}
	return ""
}

func (m *MenuModel) setField(name, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: not a number", name)
	}
	next := m.cfg.Clone()
	switch name {
	case "t_end":
		next.TEnd = v
	case "rel_tol":
		next.RelTol = v
	case "abs_tol":
		next.AbsTol = v
	case "size":
		next.Size = int(v)
	case "outputs":
		next.Outputs = int(v)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	m.cfg = next
	return nil
}

func (m MenuModel) settingsKey(msg tea.KeyMsg) (MenuModel, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			if err := m.setField(fields[m.fieldCursor], m.editBuf); err != nil {
				m.editErr = err.Error()
			} else {
				m.editErr = ""
			}
			m.editing = false
			m.editBuf = ""
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-+eE") {
				m.editBuf += s
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		m.state = statePreset
		m.cursor = 0
	case "enter", " ":
		m.editing = true
		m.editBuf = m.fieldValue(fields[m.fieldCursor])
	case "s":
		m.chosen = true
		return m, tea.Quit
	default:
		m.fieldCursor = moveCursor(m.fieldCursor, len(fields), msg.String())
	}
	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting || m.chosen {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n  " + cyan.Bold(true).Render("bdfsim") + dim.Render("  stiff ode lab") + "\n\n")

	switch m.state {
	case stateProblem:
		for i, p := range m.problems {
			b.WriteString(menuLine(i == m.cursor, p, problemInfo[p]))
		}
		b.WriteString("\n  " + dimmer.Render("[enter] select  [q] quit") + "\n")
	case statePreset:
		b.WriteString("  " + dim.Render("preset for ") + white.Render(m.problem) + "\n\n")
		for i, p := range m.presets {
			b.WriteString(menuLine(i == m.cursor, p, ""))
		}
		b.WriteString("\n  " + dimmer.Render("[enter] select  [esc] back") + "\n")
	case stateSettings:
		b.WriteString("  " + dim.Render("settings for ") + white.Render(m.cfg.Problem) + "\n\n")
		for i, f := range fields {
			val := m.fieldValue(f)
			if m.editing && i == m.fieldCursor {
				val = yellow.Render(m.editBuf + "_")
			}
			b.WriteString(menuLine(i == m.fieldCursor, f, val))
		}
		if m.editErr != "" {
			b.WriteString("\n  " + red.Render(m.editErr) + "\n")
		}
		b.WriteString("\n  " + dimmer.Render("[enter] edit  [s] start  [esc] back") + "\n")
	}
	return b.String()
}

func menuLine(selected bool, name, info string) string {
	cursor := "  "
	style := dim
	if selected {
		cursor = cyan.Render("▸ ")
		style = white
	}
	return fmt.Sprintf("  %s%s  %s\n", cursor, style.Render(fmt.Sprintf("%-12s", name)), dimmer.Render(info))
}

// RunInteractive shows the menu and returns the chosen configuration,
// or nil if the user left without starting a run.
func RunInteractive(problems []string) (*config.Config, error) {
	final, err := tea.NewProgram(NewMenu(problems)).Run()
	if err != nil {
		return nil, err
	}
	return final.(MenuModel).Config(), nil
}
