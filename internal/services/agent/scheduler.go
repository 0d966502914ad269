package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

const (
	// DefaultSubmitDelay keeps delivery clear of the host's own navigation.
	DefaultSubmitDelay = time.Second
	// DefaultSendTimeout bounds a single delivery attempt.
	DefaultSendTimeout = 10 * time.Second
)

// Scheduler delivers each record once, after a fixed delay, off the caller's
// goroutine. Failed deliveries are logged and dropped.
type Scheduler struct {
	transport ports.Transport
	log       *zap.Logger
	afterFunc func(time.Duration, func())
	wg        sync.WaitGroup
	delay     time.Duration
	timeout   time.Duration
}

// NewScheduler returns a scheduler sending through t.
func NewScheduler(t ports.Transport, delay, timeout time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if delay < 0 {
		delay = DefaultSubmitDelay
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Scheduler{
		transport: t,
		delay:     delay,
		timeout:   timeout,
		log:       log,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Schedule serializes rec now and arms an independent one-shot delivery. It
// never blocks on the network.
func (s *Scheduler) Schedule(rec domain.Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		s.log.Error("encode record", zap.Error(err))
		return
	}

	s.wg.Add(1)
	s.afterFunc(s.delay, func() {
		defer s.wg.Done()
		s.deliver(payload)
	})
}

func (s *Scheduler) deliver(payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := s.send(ctx, payload)
	if err != nil {
		s.log.Warn("record delivery failed",
			zap.Int("bytes", len(payload)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.log.Info("record delivered",
		zap.Int("bytes", len(payload)),
		zap.Duration("duration", time.Since(start)),
	)
}

func (s *Scheduler) send(ctx context.Context, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panicked: %v", r)
		}
	}()
	return s.transport.Send(ctx, payload)
}

// Wait blocks until every armed delivery has finished or ctx is done. Armed
// deliveries are never cancelled.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
