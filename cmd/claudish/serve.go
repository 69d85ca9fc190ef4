package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackfuel-ai/claudish/internal/config"
	"github.com/blackfuel-ai/claudish/internal/dispatch"
	"github.com/blackfuel-ai/claudish/internal/httpapi"
	"github.com/blackfuel-ai/claudish/internal/logging"
	"github.com/blackfuel-ai/claudish/internal/registry"
	"github.com/blackfuel-ai/claudish/internal/stream"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the loopback translating proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(logging.FromDebugFlag(cfg.Debug))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting claudish",
		zap.String("version", appVersion),
		zap.Int("port", cfg.Port),
		zap.String("reasoning_policy", cfg.ReasoningPolicy),
	)

	reg := registry.New()
	policy := stream.ParsePolicy(cfg.ReasoningPolicy)
	d := dispatch.New(reg, cfg.Port, log, policy)

	srv := httpapi.New(httpapi.Config{
		Port:       cfg.Port,
		Dispatcher: d,
		Logger:     log,
	})
	srv.Start()
	log.Info("listening", zap.Int("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	d.RemoveStatusFile()
	log.Info("stopped")
	return nil
}
