package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/speedhive-tools/internal/logger"
	"github.com/pfrederiksen/speedhive-tools/internal/metrics"
	"github.com/pfrederiksen/speedhive-tools/internal/server"
)

var flagServeListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the announcement parser over HTTP",
		Long: `Starts an HTTP service with POST /api/parse, POST /api/validate,
GET /api/health and GET /metrics.`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&flagServeListen, "listen", "", "Listen address (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := flagServeListen
	if addr == "" {
		addr = cfg.Server.ListenAddress
	}

	server.Version = Version
	srv := server.New(screenOptions(), metrics.Default, logger.Default())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server", nil)
		return srv.Shutdown(10 * time.Second)
	}
}
