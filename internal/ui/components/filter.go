package components

import (
	"sort"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/sadopc/netscope/internal/ui/msgs"
	"github.com/sadopc/netscope/internal/ui/theme"
)

// Filter is a fuzzy filter input over record targets.
type Filter struct {
	Visible bool
	input   textinput.Model
	theme   theme.Theme
}

// NewFilter creates a new filter input.
func NewFilter(s theme.Styles) Filter {
	ti := textinput.New()
	ti.Placeholder = "filter by method or URL..."
	ti.Prompt = "/"
	ti.CharLimit = 256

	return Filter{input: ti, theme: s.Theme()}
}

// Open shows the filter input keeping the current query.
func (m *Filter) Open() {
	m.Visible = true
	m.input.Focus()
}

// Close hides the filter input. The query stays applied.
func (m *Filter) Close() {
	m.Visible = false
	m.input.Blur()
}

// Query returns the current query.
func (m Filter) Query() string {
	return m.input.Value()
}

// SetWidth sets the input width.
func (m *Filter) SetWidth(w int) {
	m.input.Width = max(w-4, 1)
}

// Update implements tea.Model.
func (m Filter) Update(msg tea.Msg) (Filter, tea.Cmd) {
	if !m.Visible {
		return m, nil
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.input.SetValue("")
			m.Close()
			return m, tea.Batch(
				func() tea.Msg { return msgs.SetModeMsg{Mode: msgs.ModeNormal} },
				func() tea.Msg { return msgs.FilterChangedMsg{Query: ""} },
			)
		case "enter":
			m.Close()
			return m, func() tea.Msg { return msgs.SetModeMsg{Mode: msgs.ModeNormal} }
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if q := m.input.Value(); q != before {
		return m, tea.Batch(cmd, func() tea.Msg { return msgs.FilterChangedMsg{Query: q} })
	}
	return m, cmd
}

// View renders the filter input.
func (m Filter) View() string {
	if !m.Visible {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(m.theme.Text).
		Background(m.theme.Overlay).
		Padding(0, 1).
		Render(m.input.View())
}

// Match returns the indexes of targets matching query in target order.
// An empty query matches everything.
func Match(query string, targets []string) []int {
	if query == "" {
		idx := make([]int, len(targets))
		for i := range targets {
			idx[i] = i
		}
		return idx
	}
	matches := fuzzy.Find(query, targets)
	idx := make([]int, len(matches))
	for i, match := range matches {
		idx[i] = match.Index
	}
	sort.Ints(idx)
	return idx
}
