package main

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	archivefile "github.com/vshulcz/formmetrics/internal/adapters/archive/file"
	memrepo "github.com/vshulcz/formmetrics/internal/adapters/repository/memory"
	pgrepo "github.com/vshulcz/formmetrics/internal/adapters/repository/postgres"
	"github.com/vshulcz/formmetrics/internal/config"
	"github.com/vshulcz/formmetrics/internal/misc"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// buildRepoAndArchive prefers Postgres and falls back to memory. The archive
// is returned only for memory storage, restored first when asked to.
func buildRepoAndArchive(ctx context.Context, cfg config.ServerConfig, logger *zap.Logger) (ports.RecordRepo, *archivefile.Archive) {
	if cfg.DSN != "" {
		db, err := sql.Open("postgres", cfg.DSN)
		if err == nil {
			op := func(ctx context.Context) error {
				if err := db.PingContext(ctx); err != nil {
					return err
				}
				return pgrepo.Migrate(db)
			}
			if err = misc.Retry(ctx, misc.DefaultBackoff, pgrepo.IsRetryable, op); err == nil {
				logger.Info("db connected & migrated")
				return pgrepo.New(db), nil
			}
			_ = db.Close()
		}
		logger.Warn("postgres init failed, falling back to memory", zap.Error(err))
	}

	repo := memrepo.New()
	archive := archivefile.New(cfg.ArchiveFile, logger)
	if cfg.Restore && cfg.ArchiveFile != "" {
		n, err := archive.Restore(ctx, repo)
		if err != nil {
			logger.Warn("restore failed", zap.Int("restored", n), zap.Error(err))
		} else {
			logger.Info("restore ok", zap.String("file", cfg.ArchiveFile), zap.Int("records", n))
		}
	}
	return repo, archive
}
