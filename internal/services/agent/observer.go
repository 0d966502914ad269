package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

type recordCollector interface {
	Collect(ctx context.Context, sc *domain.SubmissionContext) domain.Record
}

type recordScheduler interface {
	Schedule(rec domain.Record)
}

// Observer is the entry point bound to the host's submission notifications.
// It only watches: Notify always lets the submission proceed.
type Observer struct {
	collector recordCollector
	scheduler recordScheduler
	hub       ports.SubmissionHub
	log       *zap.Logger
	now       func() time.Time
	mu        sync.Mutex
}

var _ ports.SubmissionObserver = (*Observer)(nil)

// NewObserver wires a collector and a scheduler into an unregistered observer.
func NewObserver(c recordCollector, s recordScheduler, log *zap.Logger) *Observer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Observer{collector: c, scheduler: s, log: log, now: time.Now}
}

// Register subscribes the observer to hub.
func (o *Observer) Register(hub ports.SubmissionHub) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hub != nil {
		return domain.ErrAlreadyRegistered
	}
	hub.Attach(o)
	o.hub = hub
	return nil
}

// Unregister removes the subscription made by Register.
func (o *Observer) Unregister() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hub == nil {
		return domain.ErrNotRegistered
	}
	o.hub.Detach(o)
	o.hub = nil
	return nil
}

// Registered reports whether the observer is subscribed.
func (o *Observer) Registered() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hub != nil
}

// Notify collects a record for evt and schedules its delivery. It returns
// true whatever happens inside.
func (o *Observer) Notify(ctx context.Context, evt domain.SubmissionEvent) (allowed bool) {
	allowed = true
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("submission observer panicked", zap.Any("panic", r))
		}
	}()

	sc := domain.NewSubmissionContext(evt, o.now())
	rec := o.collector.Collect(ctx, sc)
	o.scheduler.Schedule(rec)
	return allowed
}
