package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/netscope/internal/export/har"
	"github.com/sadopc/netscope/internal/ui/grid"
)

type fetchOptions struct {
	width       int
	harPath     string
	concurrency int
	noColor     bool
}

func newFetchCmd(root *rootOptions) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <url>...",
		Short: "Fetch URLs once and print the captured cells",
		Long: `Fetch each URL through the capture transport, then print one cell per
exchange laid out at --width columns. Failed requests are recorded and
printed like any other exchange.`,
		Example: `  netscope fetch https://example.com
  netscope fetch --width 100 --har out.har https://a.test https://b.test`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, root, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.width, "width", "w", 80, "Container width in columns")
	cmd.Flags().StringVar(&opts.harPath, "har", "", "Also write the captured exchanges as HAR to this file")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 4, "Maximum requests in flight")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable syntax highlighting")
	return cmd
}

func runFetch(cmd *cobra.Command, root *rootOptions, opts *fetchOptions, urls []string) error {
	if opts.width < 1 {
		return fmt.Errorf("--width must be at least 1, got %d", opts.width)
	}
	p, err := newPipeline(root.cfg, root.logger)
	if err != nil {
		return err
	}

	fetchURLs(cmd.Context(), p.client, urls, opts.concurrency, func(url string, err error) {
		root.logger.Warn("fetch failed", "url", url, "error", err)
	})

	r := grid.New(p.layout, p.styles)
	r.Highlight = !opts.noColor
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, r.Render(opts.width, -1)); err != nil {
		return err
	}

	if opts.harPath == "" {
		return nil
	}
	f, err := os.Create(opts.harPath)
	if err != nil {
		return fmt.Errorf("creating HAR file: %w", err)
	}
	defer f.Close()
	if err := har.Write(f, p.store.Snapshot(), Version); err != nil {
		return fmt.Errorf("writing HAR: %w", err)
	}
	root.logger.Info("wrote HAR", "path", opts.harPath, "entries", p.store.Len())
	return nil
}

// fetchURLs GETs every url with at most limit in flight and waits for all of
// them. Request errors go to onErr; the capture transport has already
// recorded them as failed exchanges.
func fetchURLs(ctx context.Context, client *http.Client, urls []string, limit int, onErr func(string, error)) {
	if ctx == nil {
		ctx = context.Background()
	}
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, u := range urls {
		u := u
		g.Go(func() error {
			if err := get(ctx, client, u); err != nil {
				onErr(u, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func get(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}
