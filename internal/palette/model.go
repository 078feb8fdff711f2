package palette

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Close key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:    key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "down")),
		Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Close: key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "close")),
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	frameStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model is the bubbletea front end of a Palette.
type Model struct {
	palette *Palette
	input   textinput.Model
	keys    keyMap
	height  int
	invoked bool
}

// NewModel creates a focused palette model over entries.
func NewModel(entries []Entry) Model {
	input := textinput.New()
	input.Placeholder = "Type to search…"
	input.Prompt = "⌘ "
	input.Focus()

	return Model{
		palette: New(entries),
		input:   input,
		keys:    defaultKeyMap(),
		height:  12,
	}
}

// Palette exposes the underlying selection state.
func (m Model) Palette() *Palette { return m.palette }

// Invoked reports whether the palette closed by running an entry.
func (m Model) Invoked() bool { return m.invoked }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Frame, query line, counts line and hint line.
		m.height = max(1, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Close):
			m.palette.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.palette.Up()
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.palette.Down()
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			if m.palette.Enter() {
				m.invoked = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != m.palette.Query() {
		m.palette.SetQuery(m.input.Value())
	}
	return m, cmd
}

func (m Model) View() string {
	if !m.palette.IsOpen() {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(fmt.Sprintf("Items: %d • Showing: %d", m.palette.Total(), m.palette.Matches())))
	b.WriteString("\n\n")

	results := m.palette.Results()
	if len(results) == 0 {
		b.WriteString(titleStyle.Render("No matches"))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("Try a different query."))
		b.WriteString("\n")
	}

	sel := m.palette.SelectedIndex()
	start := 0
	if sel >= m.height {
		start = sel - m.height + 1
	}
	end := min(len(results), start+m.height)
	for i := start; i < end; i++ {
		e := results[i]
		if i == sel {
			b.WriteString(selectedStyle.Render("› " + e.Title))
		} else {
			b.WriteString("  " + e.Title)
		}
		if e.Subtitle != "" {
			b.WriteString("  " + subtitleStyle.Render(e.Subtitle))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Enter to open • Esc to close"))
	return frameStyle.Render(b.String())
}
