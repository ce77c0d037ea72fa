// Package grid draws captured records as fixed-height terminal cells.
//
// Cells are laid out from the same regions and wrapping the layout view
// model measured, so every cell is exactly Metrics.CellHeight lines tall
// and Metrics.ContainerWidth columns wide.
package grid

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/ansi"

	"github.com/sadopc/netscope/internal/layout"
	"github.com/sadopc/netscope/internal/measure"
	"github.com/sadopc/netscope/internal/record"
	"github.com/sadopc/netscope/internal/ui/theme"
)

// Composer is the part of the layout view model a Renderer needs.
type Composer interface {
	layout.Source
	Compose(rec record.Record) []layout.Region
	Config() layout.Config
}

// Renderer turns rows into terminal cells.
type Renderer struct {
	vm     Composer
	styles theme.Styles

	// Highlight enables chroma highlighting of bodies.
	Highlight bool
}

// New creates a Renderer drawing with styles.
func New(vm Composer, styles theme.Styles) *Renderer {
	return &Renderer{vm: vm, styles: styles, Highlight: true}
}

// Render draws every visible record at containerWidth. selected is the
// index of the highlighted row, or -1.
func (r *Renderer) Render(containerWidth, selected int) string {
	return r.RenderRows(r.vm.VisibleRecords(containerWidth), selected)
}

// RenderRows draws rows stacked top to bottom.
func (r *Renderer) RenderRows(rows []layout.Row, selected int) string {
	cells := make([]string, len(rows))
	for i, row := range rows {
		cells[i] = r.Cell(row, i == selected)
	}
	return strings.Join(cells, "\n")
}

// Offset returns the first line of row index within RenderRows output.
func Offset(rows []layout.Row, index int) int {
	off := 0
	for i := 0; i < index && i < len(rows); i++ {
		off += rows[i].Metrics.CellHeight
	}
	return off
}

// Cell draws one row as exactly CellHeight lines.
func (r *Renderer) Cell(row layout.Row, selected bool) string {
	cfg := r.vm.Config()
	m := row.Metrics
	width := m.CellWidth
	if width < 1 {
		width = 1
	}

	content := make([]string, 0, m.CellHeight)
	for i := 0; i < cfg.VerticalPadding; i++ {
		content = append(content, "")
	}
	for i, region := range r.vm.Compose(row.Record) {
		if i > 0 {
			for j := 0; j < cfg.SectionPadding; j++ {
				content = append(content, "")
			}
		}
		content = append(content, r.styleRegion(row.Record, region, measure.Lines(region.Text, width, region.Style))...)
	}

	if len(content) > m.CellHeight {
		content = content[:m.CellHeight]
	}
	for len(content) < m.CellHeight {
		content = append(content, "")
	}

	gutter := r.gutter(cfg.InsetLeft, selected)
	right := strings.Repeat(" ", cfg.InsetRight)
	lines := make([]string, len(content))
	for i, line := range content {
		lines[i] = gutter + fit(line, m.CellWidth) + right
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) gutter(inset int, selected bool) string {
	if inset <= 0 {
		return ""
	}
	pad := strings.Repeat(" ", inset-1)
	if selected {
		return r.styles.GutterSelected.Render("▌") + pad
	}
	return r.styles.Gutter.Render("│") + pad
}

func (r *Renderer) styleRegion(rec record.Record, region layout.Region, lines []string) []string {
	out := make([]string, len(lines))
	switch region.Name {
	case layout.RegionSummary:
		for i, line := range lines {
			out[i] = r.styleSummary(rec, line, i == 0)
		}
	case layout.RegionHeaders:
		for i, line := range lines {
			out[i] = r.styleHeader(line)
		}
	case layout.RegionBody:
		if rec.Failed() {
			for i, line := range lines {
				out[i] = r.styles.Error.Render(line)
			}
			break
		}
		lexer := r.lexer(rec)
		for i, line := range lines {
			out[i] = r.highlight(line, lexer)
		}
	default:
		copy(out, lines)
	}
	return out
}

func (r *Renderer) styleSummary(rec record.Record, line string, first bool) string {
	rest := r.styles.Title
	switch {
	case rec.InFlight():
		rest = r.styles.Pending
	case rec.Failed():
		rest = r.styles.Error
	case rec.StatusCode >= 400:
		rest = r.styles.StatusStyle(rec.StatusCode)
	}
	if first && strings.HasPrefix(line, rec.Method) {
		return r.styles.MethodStyle(rec.Method).Render(rec.Method) + rest.Render(line[len(rec.Method):])
	}
	return rest.Render(line)
}

func (r *Renderer) styleHeader(line string) string {
	idx := strings.Index(line, ": ")
	if idx <= 0 || strings.ContainsRune(line[:idx], ' ') {
		return r.styles.Value.Render(line)
	}
	return r.styles.Key.Render(line[:idx+1]) + r.styles.Value.Render(line[idx+1:])
}

func (r *Renderer) lexer(rec record.Record) chroma.Lexer {
	if !r.Highlight {
		return nil
	}
	ct := rec.ContentType()
	if !rec.Completed() {
		ct = rec.RequestHeaders.Get("Content-Type")
	}
	l := lexers.Get(detectLexer(ct))
	if l == nil {
		return nil
	}
	return chroma.Coalesce(l)
}

// highlight colors a single wrapped line. Highlighting never changes the
// visible text, so measured and drawn widths agree.
func (r *Renderer) highlight(line string, lexer chroma.Lexer) string {
	if lexer == nil || line == "" {
		return r.styles.Normal.Render(line)
	}
	style := chromastyles.Get(r.styles.Theme().Syntax)
	if style == nil {
		style = chromastyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return line
	}
	return strings.ReplaceAll(buf.String(), "\n", "")
}

// detectLexer maps Content-Type to a chroma lexer name.
func detectLexer(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "html"):
		return "html"
	case strings.Contains(ct, "xml"):
		return "xml"
	case ct == "text/css":
		return "css"
	case strings.Contains(ct, "javascript"):
		return "javascript"
	case strings.Contains(ct, "yaml"):
		return "yaml"
	default:
		return "text"
	}
}

// fit pads or truncates s to exactly width visible columns.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := ansi.StringWidth(s)
	if w > width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-w)
}
