package theme

import (
	"net/http"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette the inspector draws with. Colors are named after
// their role in the Catppuccin palette; other themes map onto the same roles.
type Theme struct {
	Name string

	// Backgrounds: cells, status bar, filter input
	Base    lipgloss.Color
	Surface lipgloss.Color
	Overlay lipgloss.Color

	// Foregrounds
	Text    lipgloss.Color
	Subtext lipgloss.Color
	Muted   lipgloss.Color

	// Accents for methods, statuses and header keys
	Mauve    lipgloss.Color
	Red      lipgloss.Color
	Peach    lipgloss.Color
	Yellow   lipgloss.Color
	Green    lipgloss.Color
	Teal     lipgloss.Color
	Blue     lipgloss.Color
	Lavender lipgloss.Color

	// Cell gutters
	BorderFocused   lipgloss.Color
	BorderUnfocused lipgloss.Color

	// Chroma style used to highlight bodies.
	Syntax string
}

// MethodColor returns the accent drawn behind an HTTP method. Methods
// without their own accent use the text color.
func (t Theme) MethodColor(method string) lipgloss.Color {
	accents := map[string]lipgloss.Color{
		http.MethodGet:     t.Green,
		http.MethodPost:    t.Yellow,
		http.MethodPut:     t.Blue,
		http.MethodPatch:   t.Peach,
		http.MethodDelete:  t.Red,
		http.MethodHead:    t.Teal,
		http.MethodOptions: t.Lavender,
	}
	if c, ok := accents[method]; ok {
		return c
	}
	return t.Text
}

// StatusColor returns the color of a status code by class. Zero means the
// response has not arrived and is drawn muted.
func (t Theme) StatusColor(code int) lipgloss.Color {
	if code < 200 {
		return t.Muted
	}
	classes := []lipgloss.Color{t.Green, t.Blue, t.Yellow}
	if class := code/100 - 2; class < len(classes) {
		return classes[class]
	}
	return t.Red
}
