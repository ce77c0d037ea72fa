package theme

import "github.com/charmbracelet/lipgloss"

// Styles holds pre-computed Lip Gloss styles for the current theme.
type Styles struct {
	// Text styles
	Title   lipgloss.Style
	Normal  lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	URL     lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
	Hint    lipgloss.Style
	Pending lipgloss.Style

	// Record cells
	Gutter         lipgloss.Style
	GutterSelected lipgloss.Style

	// Components
	Empty lipgloss.Style

	theme Theme
}

// NewStyles creates a Styles set from a Theme.
func NewStyles(t Theme) Styles {
	return Styles{
		theme: t,

		Title:   lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		Normal:  lipgloss.NewStyle().Foreground(t.Text),
		Muted:   lipgloss.NewStyle().Foreground(t.Muted),
		Error:   lipgloss.NewStyle().Foreground(t.Red),
		Success: lipgloss.NewStyle().Foreground(t.Green),
		Warning: lipgloss.NewStyle().Foreground(t.Yellow),
		URL:     lipgloss.NewStyle().Foreground(t.Blue),
		Key:     lipgloss.NewStyle().Foreground(t.Mauve),
		Value:   lipgloss.NewStyle().Foreground(t.Text),
		Hint:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Pending: lipgloss.NewStyle().Foreground(t.Subtext).Italic(true),

		Gutter:         lipgloss.NewStyle().Foreground(t.BorderUnfocused),
		GutterSelected: lipgloss.NewStyle().Foreground(t.BorderFocused).Bold(true),

		Empty: lipgloss.NewStyle().
			Foreground(t.Muted).
			Italic(true).
			Padding(1, 2),
	}
}

// MethodStyle returns the style for an HTTP method.
func (s Styles) MethodStyle(method string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.theme.MethodColor(method)).Bold(true)
}

// StatusStyle returns the style for an HTTP status code.
func (s Styles) StatusStyle(code int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.theme.StatusColor(code)).Bold(code >= 400)
}

// Theme returns the theme the styles were built from.
func (s Styles) Theme() Theme {
	return s.theme
}
