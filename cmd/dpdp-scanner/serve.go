package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raaihank/dpdp-scanner/internal/api"
	"github.com/raaihank/dpdp-scanner/internal/config"
	"github.com/raaihank/dpdp-scanner/internal/scan"
	"github.com/raaihank/dpdp-scanner/internal/websocket"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		hub  *websocket.Hub
		opts []scan.Option
	)
	if a.cfg.WebSocket.Enabled {
		hub = websocket.NewHub(&websocket.HubConfig{
			BroadcastScans:       a.cfg.WebSocket.BroadcastScans,
			BroadcastConnections: a.cfg.WebSocket.BroadcastConnections,
			AllowedOrigins:       a.cfg.WebSocket.AllowedOrigins,
		}, a.log.WithComponent("websocket").Logger)
		opts = append(opts, scan.WithNotifier(hub))
	}

	a.log.Info("Starting DPDP scanner",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", a.cfg.Server.Port),
	)

	config.Watch(func(newConfig *config.Config) {
		a.log.Info("Configuration file changed, restart to apply",
			zap.Strings("detectors", newConfig.Detection.Detectors),
			zap.String("history_backend", newConfig.History.Backend),
		)
	}, func(err error) {
		a.log.Warn("Ignoring invalid configuration change", zap.Error(err))
	})

	server := api.New(a.cfg, a.log, a.newEngine(opts...), a.store, hub)

	serverErrors := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server listening", zap.Int("port", a.cfg.Server.Port))
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		a.log.Error("Server error", zap.Error(err))
		return err
	case sig := <-shutdown:
		a.log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding scans 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			a.log.Error("Failed to shutdown server gracefully", zap.Error(err))
			return err
		}

		a.log.Info("Server shutdown complete")
		return nil
	}
}
