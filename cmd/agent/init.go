package main

import (
	"context"
	"crypto/rand"
	"net/http"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/vshulcz/formmetrics/internal/adapters/collector/platform"
	"github.com/vshulcz/formmetrics/internal/adapters/host/replay"
	loginsfile "github.com/vshulcz/formmetrics/internal/adapters/logins/file"
	"github.com/vshulcz/formmetrics/internal/adapters/places/sqlite"
	prefsfile "github.com/vshulcz/formmetrics/internal/adapters/prefs/file"
	"github.com/vshulcz/formmetrics/internal/adapters/publisher/httpform"
	"github.com/vshulcz/formmetrics/internal/config"
	"github.com/vshulcz/formmetrics/internal/ports"
	agentsvc "github.com/vshulcz/formmetrics/internal/services/agent"
	"github.com/vshulcz/formmetrics/internal/services/identity"
	"github.com/vshulcz/formmetrics/internal/services/providers"
)

type wiring struct {
	transport  *httpform.Client
	observer   *agentsvc.Observer
	scheduler  *agentsvc.Scheduler
	refreshers []ports.Refresher
}

func wire(ctx context.Context, cfg config.AgentConfig, host *replay.Host, logger *zap.Logger) (wiring, error) {
	deps := providers.Deps{
		Identity:  identity.New(prefsfile.New(cfg.PrefsFile), rand.Reader, cfg.PrefKey, logger),
		History:   providers.Unavailable{},
		Bookmarks: providers.Unavailable{},
		Logins:    providers.Unavailable{},
		Tabs:      host,
		Privacy:   host,
	}

	var refreshers []ports.Refresher
	if cfg.ProfileDir != "" {
		places := sqlite.New(filepath.Join(cfg.ProfileDir, sqlite.FileName))
		logins := loginsfile.New(filepath.Join(cfg.ProfileDir, loginsfile.FileName))
		deps.History = places
		deps.Bookmarks = places
		deps.Logins = logins
		refreshers = append(refreshers, places, logins)
	}

	if slices.Contains(cfg.Providers, providers.NamePlatform) {
		snap, err := platform.New().Snapshot(ctx)
		if err != nil {
			logger.Warn("platform probe incomplete", zap.Error(err))
		}
		deps.Platform = &snap
	}

	reg, err := agentsvc.BuildRegistry(cfg.Providers, providers.Catalog(deps))
	if err != nil {
		return wiring{}, err
	}

	transport, err := httpform.New(cfg.SubmitURL, &http.Client{Timeout: cfg.SendTimeout})
	if err != nil {
		return wiring{}, err
	}

	collector := agentsvc.NewCollector(reg, cfg.CollectBudget, logger)
	scheduler := agentsvc.NewScheduler(transport, cfg.SubmitDelay, cfg.SendTimeout, logger)
	return wiring{
		transport:  transport,
		observer:   agentsvc.NewObserver(collector, scheduler, logger),
		scheduler:  scheduler,
		refreshers: refreshers,
	}, nil
}

