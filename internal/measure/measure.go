// Package measure turns text blocks into rendered heights for a given
// width. Results are memoized in a bounded LRU so a scrolling grid can ask
// for the same cell repeatedly without re-wrapping its content.
package measure

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/x/ansi"
	lru "github.com/hashicorp/golang-lru/v2"
)

// WrapMode selects how lines longer than the width are broken.
type WrapMode int

const (
	// WrapWord breaks at spaces and hyphens, splitting tokens only when a
	// single token is wider than the line.
	WrapWord WrapMode = iota
	// WrapHard breaks at exactly the width, which suits base64 and minified bodies.
	WrapHard
)

// Style describes how a text region is drawn. It is part of the cache key,
// so it must stay comparable.
type Style struct {
	Font       string // role name, e.g. "summary" or "mono"
	LineHeight int    // height units per rendered line
	TabWidth   int
	Wrap       WrapMode
	MaxLines   int // 0 means unlimited
}

const (
	defaultTabWidth  = 4
	defaultCacheSize = 2048
	defaultWidthGrid = 1
)

func (s Style) normalized() Style {
	if s.LineHeight < 1 {
		s.LineHeight = 1
	}
	if s.TabWidth < 1 {
		s.TabWidth = defaultTabWidth
	}
	if s.MaxLines < 0 {
		s.MaxLines = 0
	}
	return s
}

// Config configures a Service.
type Config struct {
	CacheSize int // maximum memoized entries
	WidthGrid int // widths are rounded down to a multiple of this
}

type cacheKey struct {
	hash  uint64
	size  int
	width int
	style Style
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits   uint64
	Misses uint64
	Len    int
}

// Service measures text. It is safe for concurrent use.
type Service struct {
	cache  *lru.Cache[cacheKey, int]
	grid   int
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a measurement service.
func New(cfg Config) (*Service, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.WidthGrid <= 0 {
		cfg.WidthGrid = defaultWidthGrid
	}
	cache, err := lru.New[cacheKey, int](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating measure cache: %w", err)
	}
	return &Service{cache: cache, grid: cfg.WidthGrid}, nil
}

// Measure returns the height of text wrapped to maxWidth. Empty text
// measures as one line.
func (s *Service) Measure(text string, maxWidth int, style Style) int {
	style = style.normalized()
	width := s.RoundWidth(maxWidth)
	key := cacheKey{
		hash:  xxhash.Sum64String(text),
		size:  len(text),
		width: width,
		style: style,
	}
	if h, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return h
	}
	s.misses.Add(1)

	h := len(Lines(text, width, style)) * style.LineHeight
	s.cache.Add(key, h)
	return h
}

// RoundWidth snaps a width onto the service's grid. Widths below one
// grid step are kept so narrow cells still measure.
func (s *Service) RoundWidth(w int) int {
	if w < 1 {
		return 1
	}
	if w < s.grid {
		return w
	}
	return w - w%s.grid
}

// Stats returns hit/miss counters and the current cache size.
func (s *Service) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Len:    s.cache.Len(),
	}
}

// Purge drops every memoized entry.
func (s *Service) Purge() {
	s.cache.Purge()
}

// Lines wraps text to width exactly the way Measure counts it, so a
// renderer that draws these lines fills the measured height. The result
// always has at least one line and at most style.MaxLines.
func Lines(text string, width int, style Style) []string {
	style = style.normalized()
	if width < 1 {
		width = 1
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", strings.Repeat(" ", style.TabWidth))
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return []string{""}
	}

	var wrapped string
	switch style.Wrap {
	case WrapHard:
		wrapped = ansi.Hardwrap(text, width, true)
	default:
		wrapped = ansi.Wrap(text, width, "")
	}

	lines := strings.Split(wrapped, "\n")
	if style.MaxLines > 0 && len(lines) > style.MaxLines {
		lines = lines[:style.MaxLines]
	}
	return lines
}
