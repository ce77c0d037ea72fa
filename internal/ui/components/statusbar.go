package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/netscope/internal/ui/msgs"
	"github.com/sadopc/netscope/internal/ui/theme"
)

// StatusBar is a full-width bottom status bar.
type StatusBar struct {
	records   int
	shown     int
	retention int
	inFlight  int
	evicted   int
	filter    string
	hitRatio  float64
	hasStats  bool
	mode      msgs.AppMode
	width     int
	theme     theme.Theme

	spinner  spinner.Model
	spinning bool
}

// NewStatusBar creates a new status bar.
func NewStatusBar(s theme.Styles) StatusBar {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(s.Theme().Yellow).Background(s.Theme().Surface)
	return StatusBar{
		theme:   s.Theme(),
		mode:    msgs.ModeNormal,
		spinner: sp,
	}
}

// SetCounts sets how many records are stored, shown and still in flight.
// It returns the command that starts the pending spinner when records go
// in flight, nil otherwise.
func (m *StatusBar) SetCounts(records, shown, retention, inFlight int) tea.Cmd {
	m.records = records
	m.shown = shown
	m.retention = retention
	m.inFlight = inFlight
	if inFlight > 0 && !m.spinning {
		m.spinning = true
		return m.spinner.Tick
	}
	return nil
}

// Update advances the pending spinner. Ticking stops once nothing is in
// flight.
func (m StatusBar) Update(msg tea.Msg) (StatusBar, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok {
		return m, nil
	}
	if m.inFlight == 0 {
		m.spinning = false
		return m, nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(tick)
	return m, cmd
}

// AddEvicted counts records dropped by retention.
func (m *StatusBar) AddEvicted(n int) {
	m.evicted += n
}

// SetFilter sets the active filter query.
func (m *StatusBar) SetFilter(q string) {
	m.filter = q
}

// SetCacheStats sets the measurement cache counters.
func (m *StatusBar) SetCacheStats(hits, misses uint64) {
	total := hits + misses
	m.hasStats = total > 0
	if m.hasStats {
		m.hitRatio = float64(hits) / float64(total)
	}
}

// SetMode sets the current app mode.
func (m *StatusBar) SetMode(mode msgs.AppMode) {
	m.mode = mode
}

// SetWidth sets the available width.
func (m *StatusBar) SetWidth(w int) {
	m.width = w
}

// View renders the status bar.
func (m StatusBar) View() string {
	bg := m.theme.Surface
	text := lipgloss.NewStyle().Foreground(m.theme.Text).Background(bg)
	sub := lipgloss.NewStyle().Foreground(m.theme.Subtext).Background(bg)
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted).Background(bg)

	count := fmt.Sprintf("%s/%s records", humanize.Comma(int64(m.records)), humanize.Comma(int64(m.retention)))
	if m.filter != "" {
		count = fmt.Sprintf("%d of %s", m.shown, count)
	}
	leftParts := []string{text.Render(count)}
	if m.inFlight > 0 {
		leftParts = append(leftParts, m.spinner.View()+lipgloss.NewStyle().
			Foreground(m.theme.Yellow).
			Background(bg).
			Render(fmt.Sprintf(" %d pending", m.inFlight)))
	}
	if m.evicted > 0 {
		leftParts = append(leftParts, sub.Render(humanize.Comma(int64(m.evicted))+" evicted"))
	}
	if m.filter != "" {
		leftParts = append(leftParts, lipgloss.NewStyle().
			Foreground(m.theme.Teal).
			Background(bg).
			Render("/"+m.filter))
	}
	left := strings.Join(leftParts, sub.Render(" │ "))

	modeStr := lipgloss.NewStyle().
		Foreground(m.theme.Mauve).
		Background(bg).
		Bold(true).
		Render("[" + m.mode.String() + "]")

	var rightParts []string
	if m.hasStats {
		rightParts = append(rightParts, sub.Render(fmt.Sprintf("cache %.0f%%", m.hitRatio*100)))
	}
	rightParts = append(rightParts, muted.Render("?:help  /:filter  q:quit"))
	hint := strings.Join(rightParts, sub.Render(" "))

	barStyle := lipgloss.NewStyle().Background(bg).Width(m.width)

	totalContent := lipgloss.Width(left) + lipgloss.Width(modeStr) + lipgloss.Width(hint)
	if totalContent+2 >= m.width {
		return barStyle.Render(" " + left + " " + modeStr + " " + hint)
	}

	remaining := m.width - totalContent - 2
	gap1 := remaining / 2
	gap2 := remaining - gap1
	line := " " + left +
		text.Render(strings.Repeat(" ", gap1)) + modeStr +
		text.Render(strings.Repeat(" ", gap2)) + hint
	return barStyle.Render(line)
}
