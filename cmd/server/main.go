package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vshulcz/formmetrics/internal/adapters/http/ginserver"
	"github.com/vshulcz/formmetrics/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/formmetrics/internal/config"
	"github.com/vshulcz/formmetrics/internal/misc"
	"github.com/vshulcz/formmetrics/internal/services/ingest"
	"github.com/vshulcz/formmetrics/pkg/buildinfo"
)

const shutdownTimeout = 10 * time.Second

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	cfg, err := config.LoadServerConfig(os.Args[1:], os.Stderr)
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

	repo, archive := buildRepoAndArchive(ctx, cfg, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var observers []ingest.RecordObserver
	if archive != nil {
		observers = append(observers, archive)
	}
	svc := ingest.New(repo, ingest.NewMetrics(reg), logger, observers...)
	h := ginserver.NewHandler(svc, promhttp.HandlerFor(reg, promhttp.HandlerOpts{DisableCompression: true}))
	r := ginserver.NewRouter(h, logger, middlewares.GzipRequest())
	if err := ginserver.TrustProxies(r, cfg.TrustedProxies); err != nil {
		logger.Fatal("invalid trusted proxies", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("build", buildinfo.Info{Version: buildVersion, Date: buildDate, Commit: buildCommit}.Fields()...)
	logger.Info("server started",
		zap.String("addr", cfg.Address),
		zap.String("archive", cfg.ArchiveFile),
		zap.Bool("restore", cfg.Restore),
		zap.Bool("postgres", cfg.DSN != ""),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
		logger.Info("server stopped")
	}
}
