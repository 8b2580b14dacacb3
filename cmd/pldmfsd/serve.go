package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/pkg/config"
	"github.com/marmos91/pldmfs/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the responder",
	Long: `serve builds the file table, stores, DMA engine and file-type handlers
from the configuration and answers PLDM requests on the adapter socket until
SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := config.InitializeMetrics(cfg)

	responder, err := config.BuildResponder(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := responder.Close(); err != nil {
			logger.Warn("Error closing stores: %v", err)
		}
	}()

	socketAdapter, err := config.CreateAdapter(cfg, responder.Handler, m)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server.ShutdownTimeout)
	if err := srv.AddAdapter(socketAdapter); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if m.Server != nil {
		g.Go(func() error { return m.Server.Start(gctx) })
	}
	g.Go(func() error { return srv.Serve(gctx) })

	logger.Info("pldmfsd running: socket=%s. Press Ctrl+C to stop.", cfg.Adapter.SocketPath)

	return g.Wait()
}
