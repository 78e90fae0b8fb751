package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/news-intelligence/internal/app"
	"github.com/samvad-hq/news-intelligence/internal/config"
	"github.com/samvad-hq/news-intelligence/internal/logger"
	"github.com/samvad-hq/news-intelligence/internal/view"
)

// errFetchFailed marks a fetch that settled in the error state.
var errFetchFailed = errors.New("fetch ended in error state")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "viewer",
		Short:         "News Intelligence article viewer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newFetchCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the viewer page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withViewer(cmd.Context(), func(ctx context.Context, v *app.Viewer) error {
				return v.Serve(ctx)
			})
		},
	}
}

func newFetchCmd() *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the latest article once and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withViewer(cmd.Context(), func(ctx context.Context, v *app.Viewer) error {
				snap, err := v.FetchOnce(ctx)
				if err != nil {
					return err
				}
				if err := printSnapshot(cmd.OutOrStdout(), v, snap, asHTML); err != nil {
					return err
				}
				if snap.Phase == view.PhaseError {
					return fmt.Errorf("%w: %s", errFetchFailed, snap.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "print the rendered page instead of JSON state")
	return cmd
}

func printSnapshot(w io.Writer, v *app.Viewer, snap view.Snapshot, asHTML bool) error {
	if asHTML {
		return v.Renderer().Render(w, snap)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// withViewer loads config and logging, builds the viewer and closes it after fn returns.
func withViewer(parent context.Context, fn func(context.Context, *app.Viewer) error) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("viewer starting", "config", cfg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v, err := app.NewViewer(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize viewer", "error", err.Error())
		return err
	}
	defer func() {
		if cerr := v.Close(); cerr != nil {
			logger.ErrorObj("viewer close failed", "error", cerr.Error())
		}
	}()

	return fn(ctx, v)
}
