// Package main runs the mock Cortex backend used to exercise cortex-notice
// against real HTTP failures.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nexus-station/cortex/internal/logging"
	"github.com/nexus-station/cortex/internal/mock"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		addr      string
		chaosRate float64
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:          "mockcortex",
		Short:        "Serve a mock Cortex backend with failing endpoints",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if chaosRate < 0 || chaosRate > 1 {
				return fmt.Errorf("--chaos must be between 0 and 1, got %v", chaosRate)
			}
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logConfig := logging.DefaultConfig()
			logConfig.Level = level
			logConfig.Component = "mock"
			if err := logging.InitGlobalLogger(logConfig); err != nil {
				return err
			}
			logger := logging.GetGlobalLogger()
			defer func() { _ = logger.Sync() }()

			gin.SetMode(gin.ReleaseMode)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, mock.NewServer(mock.Options{ChaosRate: chaosRate}, logger), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().Float64Var(&chaosRate, "chaos", 0, "probability of injected faults on healthy endpoints")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func serve(ctx context.Context, addr string, handler http.Handler, logger *logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Mock backend listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mock backend failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down mock backend: %w", err)
	}
	logger.Info("Mock backend stopped")
	return nil
}
