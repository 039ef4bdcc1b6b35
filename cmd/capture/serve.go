package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/capture-service/internal/api"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != "" {
			cfg.ServerPort = servePort
		}

		a, err := newApp(cmd.Context(), cfg, prometheus.DefaultRegisterer, logger)
		if err != nil {
			return err
		}
		defer a.close()

		var redis api.Pinger
		if a.redis != nil {
			redis = a.redis
		}
		server := api.NewServer(cfg, a.service, a.layout, redis, a.metrics, prometheus.DefaultGatherer, logger)

		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
		logger.Info("server started", zap.String("port", cfg.ServerPort))

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-errCh:
			logger.Error("could not start server", zap.Error(err))
			return err
		case <-quit:
		}

		logger.Info("shutting down server...")
		// in-flight captures get their full deadline to finish
		ctx, cancel := context.WithTimeout(context.Background(), cfg.CaptureTimeout()+10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
			return err
		}

		logger.Info("server exiting")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides SERVER_PORT)")
}
