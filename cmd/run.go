package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jekabolt/grbpwr-insights/app"
	"github.com/jekabolt/grbpwr-insights/config"
	"github.com/jekabolt/grbpwr-insights/log"
	"github.com/spf13/cobra"
)

// run serves the dashboard API until a stop signal arrives or the HTTP
// server dies on its own.
func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("can't load insights config: %w", err)
	}
	logger := log.New(cfg.Logger, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	svc := app.New(cfg)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("can't start insights service: %w", err)
	}

	select {
	case <-ctx.Done():
		logger.Warn("stop signal received, draining dashboard requests",
			slog.String("version", version),
		)
		// ctx is already cancelled, shutdown gets its own deadline
		svc.Stop(context.Background())
		<-svc.Done()
		logger.Info("insights service stopped")
		return nil
	case <-svc.Done():
		return fmt.Errorf("insights http server exited unexpectedly")
	}
}
