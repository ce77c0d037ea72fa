package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/sadopc/netscope/internal/ui/theme"
)

const defaultToastTTL = 3 * time.Second

type toastDismissMsg struct {
	seq int
}

type notice struct {
	text    string
	isError bool
	ttl     time.Duration
}

// Toast shows one transient notice in the footer line. Each Show replaces
// the current notice, and only the timer of the newest one hides it.
type Toast struct {
	Visible bool

	notice notice
	seq    int
	width  int

	success lipgloss.Style
	failure lipgloss.Style
}

// NewToast creates a hidden toast.
func NewToast(s theme.Styles) Toast {
	t := s.Theme()
	base := lipgloss.NewStyle().Background(t.Surface).Bold(true).Padding(0, 1)
	return Toast{
		success: base.Foreground(t.Green),
		failure: base.Foreground(t.Red),
	}
}

// Show displays text for ttl, or three seconds when ttl is not positive,
// and returns the command that hides it again.
func (m *Toast) Show(text string, isError bool, ttl time.Duration) tea.Cmd {
	if ttl <= 0 {
		ttl = defaultToastTTL
	}
	m.seq++
	m.notice = notice{text: text, isError: isError, ttl: ttl}
	m.Visible = true
	return dismissAfter(m.seq, ttl)
}

func dismissAfter(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return toastDismissMsg{seq: seq}
	})
}

// Text returns the current notice.
func (m Toast) Text() string { return m.notice.text }

// IsError reports whether the current notice is an error.
func (m Toast) IsError() bool { return m.notice.isError }

// TTL returns how long the current notice stays up.
func (m Toast) TTL() time.Duration { return m.notice.ttl }

// SetWidth bounds the rendered notice to w columns.
func (m *Toast) SetWidth(w int) {
	m.width = w
}

// Update hides the notice when its own timer fires.
func (m Toast) Update(msg tea.Msg) (Toast, tea.Cmd) {
	if d, ok := msg.(toastDismissMsg); ok && d.seq == m.seq {
		m.Visible = false
		m.notice = notice{}
	}
	return m, nil
}

func (m Toast) View() string {
	if !m.Visible || m.notice.text == "" {
		return ""
	}
	style, glyph := m.success, "✓ "
	if m.notice.isError {
		style, glyph = m.failure, "✗ "
	}
	text := glyph + m.notice.text
	// Padding takes one column on each side.
	if room := m.width - 2; room > 0 {
		text = ansi.Truncate(text, room, "…")
	}
	return style.Render(text)
}
