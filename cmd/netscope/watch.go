package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/netscope/internal/app"
	"github.com/sadopc/netscope/internal/export/har"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		loadPath string
	)

	cmd := &cobra.Command{
		Use:   "watch [url]...",
		Short: "Open the interactive record viewer",
		Long: `Open a full-screen viewer over the record store. URLs given as arguments
are fetched at startup, and again every --interval when it is set.
--load replays a saved HAR file into the store before the viewer opens.`,
		Example: `  netscope watch https://example.com/health
  netscope watch --interval 5s https://a.test https://b.test
  netscope watch --load capture.har`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval < 0 {
				return fmt.Errorf("--interval must not be negative")
			}
			p, err := newPipeline(root.cfg, root.logger)
			if err != nil {
				return err
			}
			if loadPath != "" {
				if err := loadHAR(p, loadPath); err != nil {
					return err
				}
			}

			model := app.New(app.Options{
				Store:    p.store,
				Layout:   p.layout,
				Measure:  p.measure,
				Styles:   p.styles,
				Client:   p.client,
				Targets:  args,
				Interval: interval,
				Logger:   root.logger,
			})
			defer model.Close()

			prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := prog.Run(); err != nil {
				return fmt.Errorf("running viewer: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Refetch the URLs this often (0 fetches once)")
	cmd.Flags().StringVar(&loadPath, "load", "", "Replay exchanges from a HAR file")
	return cmd
}

func loadHAR(p *pipeline, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening HAR file: %w", err)
	}
	defer f.Close()

	doc, err := har.Read(f)
	if err != nil {
		return err
	}
	if _, err := har.Replay(doc, p.store); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
