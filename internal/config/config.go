package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/netscope/internal/layout"
	"github.com/sadopc/netscope/internal/logging"
	"github.com/sadopc/netscope/internal/measure"
	"github.com/sadopc/netscope/internal/store"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the application configuration.
type Config struct {
	Theme string `yaml:"theme"`

	Retention       int `yaml:"retention"`
	MaxCaptureBytes int `yaml:"max_capture_bytes"`

	MinCellHeight   int `yaml:"min_cell_height"`
	MaxCellHeight   int `yaml:"max_cell_height"`
	InsetLeft       int `yaml:"inset_left"`
	InsetRight      int `yaml:"inset_right"`
	VerticalPadding int `yaml:"vertical_padding"`
	SectionPadding  int `yaml:"section_padding"`
	MaxHeaderLines  int `yaml:"max_header_lines"`
	MaxBodyBytes    int `yaml:"max_body_bytes"`
	MaxBodyLines    int `yaml:"max_body_lines"`

	MeasureCacheSize int `yaml:"measure_cache_size"`
	WidthGrid        int `yaml:"width_grid"`

	RequestTimeout time.Duration `yaml:"request_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	l := layout.DefaultConfig()
	return Config{
		Theme:            "catppuccin-mocha",
		Retention:        store.DefaultRetention,
		MaxCaptureBytes:  64 << 10,
		MinCellHeight:    l.MinCellHeight,
		MaxCellHeight:    l.MaxCellHeight,
		InsetLeft:        l.InsetLeft,
		InsetRight:       l.InsetRight,
		VerticalPadding:  l.VerticalPadding,
		SectionPadding:   l.SectionPadding,
		MaxHeaderLines:   l.MaxHeaderLines,
		MaxBodyBytes:     l.MaxBodyBytes,
		MaxBodyLines:     l.MaxBodyLines,
		MeasureCacheSize: 2048,
		WidthGrid:        1,
		RequestTimeout:   30 * time.Second,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Validate reports the first option that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.Retention < 1:
		return fmt.Errorf("%w: retention must be at least 1, got %d", ErrInvalid, c.Retention)
	case c.MinCellHeight < 1:
		return fmt.Errorf("%w: min_cell_height must be at least 1, got %d", ErrInvalid, c.MinCellHeight)
	case c.MaxCellHeight != 0 && c.MaxCellHeight < c.MinCellHeight:
		return fmt.Errorf("%w: max_cell_height %d is below min_cell_height %d", ErrInvalid, c.MaxCellHeight, c.MinCellHeight)
	case c.InsetLeft < 0 || c.InsetRight < 0:
		return fmt.Errorf("%w: insets must not be negative", ErrInvalid)
	case c.VerticalPadding < 0 || c.SectionPadding < 0:
		return fmt.Errorf("%w: padding must not be negative", ErrInvalid)
	case c.MeasureCacheSize < 1:
		return fmt.Errorf("%w: measure_cache_size must be at least 1, got %d", ErrInvalid, c.MeasureCacheSize)
	case c.WidthGrid < 1:
		return fmt.Errorf("%w: width_grid must be at least 1, got %d", ErrInvalid, c.WidthGrid)
	case c.MaxCaptureBytes < 0 || c.MaxBodyBytes < 0 || c.MaxHeaderLines < 0 || c.MaxBodyLines < 0:
		return fmt.Errorf("%w: truncation limits must not be negative", ErrInvalid)
	case c.RequestTimeout < 0:
		return fmt.Errorf("%w: request_timeout must not be negative", ErrInvalid)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case string(logging.FormatText), string(logging.FormatJSON):
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// Layout returns the layout options.
func (c Config) Layout() layout.Config {
	return layout.Config{
		MinCellHeight:   c.MinCellHeight,
		MaxCellHeight:   c.MaxCellHeight,
		InsetLeft:       c.InsetLeft,
		InsetRight:      c.InsetRight,
		VerticalPadding: c.VerticalPadding,
		SectionPadding:  c.SectionPadding,
		MaxHeaderLines:  c.MaxHeaderLines,
		MaxBodyBytes:    c.MaxBodyBytes,
		MaxBodyLines:    c.MaxBodyLines,
	}
}

// Measure returns the measurement service options.
func (c Config) Measure() measure.Config {
	return measure.Config{CacheSize: c.MeasureCacheSize, WidthGrid: c.WidthGrid}
}

// Logging returns the logger options. Output is left to the caller.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.LogLevel)
	cfg.Format = logging.ParseFormat(c.LogFormat)
	return cfg
}
