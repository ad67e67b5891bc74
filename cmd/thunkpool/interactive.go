package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/thunk-runtime/config"
	"github.com/wippyai/thunk-runtime/thunk"
)

const (
	gridColumns  = 16
	maxGridSlots = 256
	maxEvents    = 6
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	boundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	freeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Bind    key.Binding
	Release key.Binding
	Call    key.Binding
	Back    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Bind, k.Release, k.Call, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Bind, k.Release, k.Call, k.Back},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
	Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
	Bind:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bind")),
	Release: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "release")),
	Call:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "call")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// eventLog records pool events for display. Pool operations run inside
// Update, so events arrive on the program goroutine.
type eventLog struct {
	lines []string
}

func (l *eventLog) OnThunkEvent(e thunk.Event) {
	var line string
	if e.Type == thunk.EventExhausted {
		line = fmt.Sprintf("%s  shape %s", e.Type, e.Shape)
	} else {
		line = fmt.Sprintf("%s  slot %d  entry %d", e.Type, e.Index, e.Entry)
	}
	l.lines = append(l.lines, line)
	if len(l.lines) > maxEvents {
		l.lines = l.lines[len(l.lines)-maxEvents:]
	}
}

type interactiveModel struct {
	err      error
	session  *session
	events   *eventLog
	cfg      *config.Config
	help     help.Model
	input    textinput.Model
	result   string
	selected int
	calling  bool
}

type sessionMsg struct {
	err     error
	session *session
}

func newInteractiveModel(cfg *config.Config) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "x y"
	ti.Prompt = "args: "
	ti.Width = 30

	return &interactiveModel{
		cfg:    cfg,
		events: &eventLog{},
		help:   help.New(),
		input:  ti,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.startSession
}

func (m *interactiveModel) startSession() tea.Msg {
	s, err := newSession(context.Background(), m.cfg, zap.NewNop())
	return sessionMsg{session: s, err: err}
}

func (m *interactiveModel) visibleSlots() int {
	if m.session == nil {
		return 0
	}
	return min(m.session.pool.Capacity(), maxGridSlots)
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		m.session.pool.Subscribe(m.events)
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) && !(m.calling && msg.String() == "q") {
			if m.session != nil {
				m.session.close(context.Background())
			}
			return m, tea.Quit
		}
		if m.session == nil {
			return m, nil
		}
		if m.calling {
			return m.updateCall(msg)
		}
		return m.updateGrid(msg)
	}

	return m, nil
}

func (m *interactiveModel) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.visibleSlots()

	switch {
	case key.Matches(msg, keys.Up):
		if m.selected >= gridColumns {
			m.selected -= gridColumns
		}
	case key.Matches(msg, keys.Down):
		if m.selected+gridColumns < n {
			m.selected += gridColumns
		}
	case key.Matches(msg, keys.Left):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, keys.Right):
		if m.selected < n-1 {
			m.selected++
		}

	case key.Matches(msg, keys.Bind):
		m.err = nil
		entry, k, err := m.session.bind()
		if err != nil {
			m.err = err
			break
		}
		if idx, ok := m.session.pool.Index(entry); ok && idx < n {
			m.selected = idx
		}
		m.result = fmt.Sprintf("bound k=%d at entry %d", k, entry)

	case key.Matches(msg, keys.Release):
		m.err = nil
		entry, _ := m.session.pool.Entry(m.selected)
		if err := m.session.pool.ReleaseThunk(entry); err != nil {
			m.err = err
			break
		}
		m.result = fmt.Sprintf("released entry %d", entry)

	case key.Matches(msg, keys.Call):
		m.err = nil
		m.result = ""
		m.calling = true
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m *interactiveModel) updateCall(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.calling = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, keys.Call):
		m.calling = false
		m.input.Blur()
		x, y, err := parseArgs(m.input.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		entry, _ := m.session.pool.Entry(m.selected)
		res, err := m.session.call(context.Background(), entry, x, y)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.result = fmt.Sprintf("entry %d: f(%d, %d) = %d", entry, x, y, res)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func parseArgs(s string) (int64, int64, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two integers, got %q", s)
	}
	x, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("x: %w", err)
	}
	y, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("y: %w", err)
	}
	return x, y, nil
}

func (m *interactiveModel) View() string {
	if m.session == nil {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
		}
		return "Starting pool..."
	}

	var b strings.Builder
	pool := m.session.pool
	st := pool.Stats()

	b.WriteString(titleStyle.Render("Thunk Pool"))
	b.WriteString(" ")
	b.WriteString(infoStyle.Render(fmt.Sprintf("%s  %s  %d/%d bound  cursor %d",
		pool.ID()[:8], st.Strategy, st.Bound, st.Capacity, st.Cursor)))
	b.WriteString("\n\n")

	slots := pool.Slots()
	n := m.visibleSlots()
	for i := 0; i < n; i++ {
		cell := "·"
		style := freeStyle
		if slots[i].Bound {
			cell = "■"
			style = boundStyle
		}
		if i == m.selected {
			style = selectedStyle
		}
		b.WriteString(style.Render(cell))
		if (i+1)%gridColumns == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	if n < pool.Capacity() {
		b.WriteString(freeStyle.Render(fmt.Sprintf("\n... %d more slots", pool.Capacity()-n)))
	}
	b.WriteString("\n\n")

	sel := slots[m.selected]
	if sel.Bound {
		b.WriteString(fmt.Sprintf("slot %d  entry %d  shape %s  gen %d\n",
			sel.Index, sel.Entry, sel.Shape, sel.Generation))
	} else {
		b.WriteString(fmt.Sprintf("slot %d  entry %d  free\n", sel.Index, sel.Entry))
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("alloc %d  release %d  exhausted %d  calls %d  faults %d",
		st.Allocations, st.Releases, st.Exhaustions, st.Invocations, st.Faults)))
	b.WriteString("\n\n")

	if m.calling {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	} else if m.result != "" {
		b.WriteString(resultStyle.Render(m.result))
		b.WriteString("\n\n")
	}

	for _, line := range m.events.lines {
		b.WriteString(freeStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))

	return b.String()
}

func runInteractive(cfg *config.Config) error {
	p := tea.NewProgram(newInteractiveModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
