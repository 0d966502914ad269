package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vshulcz/formmetrics/internal/adapters/host/replay"
	"github.com/vshulcz/formmetrics/internal/config"
	"github.com/vshulcz/formmetrics/internal/misc"
	agentsvc "github.com/vshulcz/formmetrics/internal/services/agent"
	"github.com/vshulcz/formmetrics/pkg/buildinfo"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	cfg, err := config.LoadAgentConfig(os.Args[1:], os.Stderr)
	if err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	logger, err := misc.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := replay.Open(cfg.EventsFile)
	if err != nil {
		logger.Fatal("open event stream", zap.String("events", cfg.EventsFile), zap.Error(err))
	}
	defer src.Close()
	host := replay.New(src, logger)

	w, err := wire(ctx, cfg, host, logger)
	if err != nil {
		logger.Fatal("agent setup failed", zap.Error(err))
	}

	logger.Info("build", buildinfo.Info{Version: buildVersion, Date: buildDate, Commit: buildCommit}.Fields()...)
	logger.Info("agent started",
		zap.String("submit_url", w.transport.URL()),
		zap.Strings("providers", cfg.Providers),
		zap.Duration("submit_delay", cfg.SubmitDelay),
		zap.String("profile", cfg.ProfileDir),
	)

	runner := agentsvc.New(cfg, host, w.observer, w.scheduler, logger, w.refreshers...)
	if err := runner.Run(ctx); err != nil {
		logger.Fatal("agent stopped", zap.Error(err))
	}
	logger.Info("agent stopped")
}
