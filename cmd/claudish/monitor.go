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
	"github.com/blackfuel-ai/claudish/internal/httpapi"
	"github.com/blackfuel-ai/claudish/internal/logging"
	"github.com/blackfuel-ai/claudish/internal/monitor"
)

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run in Monitor Mode: pass requests through to the upstream vendor unchanged, logging redacted fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor()
		},
	}
}

func runMonitor() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.MonitorUpstream == "" {
		return fmt.Errorf("CLAUDISH_MONITOR_UPSTREAM must be set for monitor mode")
	}

	log, err := logging.New(logging.FromDebugFlag(cfg.Debug))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	monitorCfg := monitor.Config{
		UpstreamBase: cfg.MonitorUpstream,
		Logger:       log,
		Sink:         fixtureLogger{logger: log},
	}
	if cfg.AnthropicAPIKey != "" {
		monitorCfg.APIKeyHeader = "Authorization"
		monitorCfg.APIKey = "Bearer " + cfg.AnthropicAPIKey
	}
	m := monitor.New(monitorCfg)

	srv := httpapi.New(httpapi.Config{
		Port:    cfg.Port,
		Monitor: m,
		Logger:  log,
	})
	srv.Start()
	log.Info("monitor mode listening", zap.Int("port", cfg.Port), zap.String("upstream", cfg.MonitorUpstream))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

// fixtureLogger is the simplest FixtureSink: it writes each redacted
// exchange to the structured logger for offline capture by a log-scraping
// fixture extractor.
type fixtureLogger struct {
	logger *zap.Logger
}

func (f fixtureLogger) Write(ex monitor.RedactedExchange) {
	f.logger.Info("captured exchange",
		zap.String("method", ex.Method),
		zap.String("path", ex.Path),
		zap.Int("status", ex.StatusCode),
		zap.ByteString("request", ex.RequestBody),
		zap.ByteString("response", ex.ResponseBody),
	)
}
