// Package agent implements the form submission metrics agent.
package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vshulcz/formmetrics/internal/config"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// Host emits submission notifications until Run returns.
type Host interface {
	ports.SubmissionHub
	Run(ctx context.Context) error
}

// Service ties the observer to a host for the lifetime of Run and keeps the
// profile stores materialized in the background.
type Service struct {
	host       Host
	observer   *Observer
	scheduler  *Scheduler
	log        *zap.Logger
	refreshers []ports.Refresher
	cfg        config.AgentConfig
}

// New wires together the agent configuration, host, observer, and scheduler.
func New(cfg config.AgentConfig, host Host, o *Observer, s *Scheduler, log *zap.Logger, refreshers ...ports.Refresher) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cfg: cfg, host: host, observer: o, scheduler: s, log: log, refreshers: refreshers}
}

// Run materializes the stores, registers the observer and blocks until the
// host stops or ctx is done. Armed deliveries are awaited for up to
// cfg.ShutdownTimeout before returning.
func (s *Service) Run(ctx context.Context) error {
	s.refreshAll(ctx)

	if err := s.observer.Register(s.host); err != nil {
		return err
	}
	s.log.Info("submission observer registered")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		err := s.host.Run(gctx)
		if cerr := gctx.Err(); cerr != nil && errors.Is(err, cerr) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		s.refreshLoop(gctx)
		return nil
	})
	runErr := g.Wait()

	if err := s.observer.Unregister(); err != nil {
		s.log.Warn("unregister observer", zap.Error(err))
	}
	s.log.Info("submission observer unregistered")

	waitCtx, waitCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer waitCancel()
	if err := s.scheduler.Wait(waitCtx); err != nil {
		s.log.Warn("pending deliveries abandoned", zap.Error(err))
	}
	return runErr
}

func (s *Service) refreshLoop(ctx context.Context) {
	if len(s.refreshers) == 0 || s.cfg.RefreshInterval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshAll(ctx)
		}
	}
}

func (s *Service) refreshAll(ctx context.Context) {
	for _, r := range s.refreshers {
		if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("store refresh failed", zap.Error(err))
		}
	}
}
