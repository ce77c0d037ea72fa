package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/sadopc/netscope/internal/capture"
	"github.com/sadopc/netscope/internal/config"
	"github.com/sadopc/netscope/internal/layout"
	"github.com/sadopc/netscope/internal/logging"
	"github.com/sadopc/netscope/internal/measure"
	"github.com/sadopc/netscope/internal/store"
	"github.com/sadopc/netscope/internal/ui/theme"
)

// rootOptions holds the persistent flags and what they resolve to.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	themeName  string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "netscope",
		Short: "netscope captures HTTP traffic and lays it out as terminal cells",
		Long: `netscope records HTTP exchanges made through its capture transport and
renders each one as a fixed-height cell sized to the terminal.

By default, netscope reads its configuration from ~/.config/netscope/config.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.config/netscope/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	cmd.PersistentFlags().StringVar(&opts.themeName, "theme", "", "Color theme")

	cmd.AddCommand(newFetchCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newThemesCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// resolve loads the config file and applies flag overrides.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	cfg := config.Load()
	if o.configPath != "" {
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if o.themeName != "" {
		cfg.Theme = o.themeName
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lc := cfg.Logging()
	lc.Output = cmd.ErrOrStderr()
	o.cfg = cfg
	o.logger = logging.New(lc)
	return nil
}

// pipeline is the capture -> store -> layout chain shared by commands.
type pipeline struct {
	store   *store.Store
	measure *measure.Service
	layout  *layout.ViewModel
	client  *http.Client
	styles  theme.Styles
}

func newPipeline(cfg config.Config, logger *slog.Logger) (*pipeline, error) {
	s := store.New(cfg.Retention, store.WithLogger(logger))
	ms, err := measure.New(cfg.Measure())
	if err != nil {
		return nil, fmt.Errorf("creating measure service: %w", err)
	}
	vm := layout.New(s, ms, cfg.Layout())

	tr := capture.NewTransport(nil, capture.NewStoreSink(s, logger))
	tr.MaxBodyBytes = int64(cfg.MaxCaptureBytes)

	return &pipeline{
		store:   s,
		measure: ms,
		layout:  vm,
		client:  tr.Client(cfg.RequestTimeout),
		styles:  theme.NewStyles(theme.Resolve(cfg.Theme)),
	}, nil
}
