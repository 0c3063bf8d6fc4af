package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	classStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateFilter
)

type interactiveModel struct {
	err      error
	s        *session
	title    string
	status   string
	filter   string
	rows     []row
	input    textinput.Model
	selected int
	state    modelState
}

func newInteractiveModel(s *session, title string) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "class: "
	ti.Placeholder = "name prefix"
	ti.Width = 30

	m := &interactiveModel{
		s:     s,
		title: title,
		input: ti,
		state: stateBrowse,
	}
	m.refresh()
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

// refresh reloads the visible rows, keeping the selection in range.
func (m *interactiveModel) refresh() {
	all := m.s.rows()
	m.rows = m.rows[:0]
	for _, r := range all {
		if m.filter == "" || strings.HasPrefix(r.Class, m.filter) {
			m.rows = append(m.rows, r)
		}
	}
	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *interactiveModel) current() (row, bool) {
	if len(m.rows) == 0 {
		return row{}, false
	}
	return m.rows[m.selected], true
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == stateFilter {
		switch key.String() {
		case "enter":
			m.filter = strings.TrimSpace(m.input.Value())
			m.state = stateBrowse
			m.input.Blur()
			m.refresh()
			return m, nil
		case "esc":
			m.state = stateBrowse
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}

	case "n":
		m.newObject()

	case "r":
		if r, ok := m.current(); ok {
			_, err := m.s.env.Retain(r.Object)
			m.report(err, "retained %s", r.Object)
		}

	case "x":
		if r, ok := m.current(); ok {
			err := m.s.env.Release(r.Object)
			m.report(err, "released %s", r.Object)
		}

	case "/":
		m.state = stateFilter
		m.input.SetValue(m.filter)
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

// newObject allocates an instance of the selected class, or of the
// selected instance's class.
func (m *interactiveModel) newObject() {
	class := m.s.env.NSObject()
	if r, ok := m.current(); ok {
		if name, err := m.s.env.ClassName(r.Object); err == nil {
			if c, found := m.s.env.LookupClass(name); found {
				class = c
			}
		}
	}
	obj, err := m.s.env.Alloc(class)
	m.report(err, "allocated %s", obj)
}

func (m *interactiveModel) report(err error, format string, args ...any) {
	m.err = err
	m.status = ""
	if err == nil {
		m.status = fmt.Sprintf(format, args...)
	}
	m.refresh()
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ObjC Runtime"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString("\n\n")

	if m.filter != "" {
		b.WriteString(fmt.Sprintf("Objects of classes matching %s:\n\n", classStyle.Render(m.filter+"*")))
	} else {
		b.WriteString(fmt.Sprintf("Objects (%d):\n\n", m.s.rt.Len()))
	}
	for i, r := range m.rows {
		line := r.String()
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(helpStyle.Render("  (none)"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n\n")

	if m.state == stateFilter {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter apply • esc cancel"))
	} else {
		b.WriteString(helpStyle.Render("↑/↓ select • n new • r retain • x release • / filter • q quit"))
	}
	return b.String()
}

func runInteractive(s *session, title string) error {
	if title == "" {
		title = "(no image)"
	}
	p := tea.NewProgram(newInteractiveModel(s, title), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

var _ tea.Model = (*interactiveModel)(nil)
