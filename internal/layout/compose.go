package layout

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"

	"github.com/sadopc/netscope/internal/measure"
	"github.com/sadopc/netscope/internal/record"
)

// Region names.
const (
	RegionSummary = "summary"
	RegionHeaders = "headers"
	RegionBody    = "body"
)

// Region is one separately measured block of a cell.
type Region struct {
	Name  string
	Text  string
	Style measure.Style
}

// Compose builds the text regions drawn for rec. In-flight records show
// their request side; completed records show the response; failed
// records show the error in place of a body. Empty regions are omitted,
// the summary is always present.
func (vm *ViewModel) Compose(rec record.Record) []Region {
	regions := []Region{{
		Name:  RegionSummary,
		Text:  summaryLine(rec),
		Style: measure.Style{Font: "summary", Wrap: measure.WrapWord},
	}}

	headers := rec.RequestHeaders
	if rec.Completed() {
		headers = rec.ResponseHeaders
	}
	if text := headerBlock(headers, vm.cfg.MaxHeaderLines); text != "" {
		regions = append(regions, Region{
			Name:  RegionHeaders,
			Text:  text,
			Style: measure.Style{Font: "mono", Wrap: measure.WrapHard},
		})
	}

	if text := vm.bodyBlock(rec); text != "" {
		regions = append(regions, Region{
			Name:  RegionBody,
			Text:  text,
			Style: measure.Style{Font: "mono", Wrap: measure.WrapWord, MaxLines: vm.cfg.MaxBodyLines},
		})
	}
	return regions
}

func summaryLine(rec record.Record) string {
	var b strings.Builder
	b.WriteString(rec.Method)
	b.WriteByte(' ')
	b.WriteString(rec.URL)

	switch {
	case rec.InFlight():
		if rec.StatusCode > 0 {
			b.WriteString(" · " + strconv.Itoa(rec.StatusCode))
		}
		b.WriteString(" · pending")
		return b.String()
	case rec.Failed():
		b.WriteString(" · ERR")
	default:
		b.WriteString(" · " + strconv.Itoa(rec.StatusCode))
		if text := http.StatusText(rec.StatusCode); text != "" {
			b.WriteString(" " + text)
		}
	}

	if d := rec.Duration(); d > 0 {
		b.WriteString(" · " + FormatDuration(d))
	}
	if n := rec.Size(); n > 0 {
		b.WriteString(" · " + humanize.Bytes(uint64(n)))
	}
	return b.String()
}

// FormatDuration renders a duration the way the summary line does.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func headerBlock(h http.Header, maxLines int) string {
	if len(h) == 0 {
		return ""
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+strings.Join(h[k], ", "))
	}
	if maxLines > 0 && len(lines) > maxLines {
		hidden := len(lines) - maxLines + 1
		lines = append(lines[:maxLines-1], fmt.Sprintf("... %d more", hidden))
	}
	return strings.Join(lines, "\n")
}

func (vm *ViewModel) bodyBlock(rec record.Record) string {
	if rec.Failed() {
		return "error: " + rec.Error
	}
	body := rec.RequestBody
	if rec.Completed() {
		body = rec.ResponseBody
	}
	if len(body) == 0 {
		return ""
	}
	if !utf8.Valid(body) {
		return fmt.Sprintf("(binary, %s)", humanize.Bytes(uint64(len(body))))
	}
	if strings.Contains(strings.ToLower(rec.ContentType()), "json") && json.Valid(body) {
		body = pretty.Pretty(body)
	}
	return truncateBody(string(body), vm.cfg.MaxBodyBytes)
}

func truncateBody(s string, limit int) string {
	s = strings.TrimRight(s, "\n")
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + fmt.Sprintf("\n... (%d bytes truncated)", len(s)-cut)
}
