// Package ingest accepts submission records on the collector side.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
	"github.com/vshulcz/formmetrics/pkg/observer"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// RecordObserver is told about every record after it has been stored.
type RecordObserver = observer.Observer[domain.StoredRecord]

type Service struct {
	repo    ports.RecordRepo
	events  *observer.Subject[domain.StoredRecord]
	metrics *Metrics
	log     *zap.Logger
	now     func() time.Time
}

func New(repo ports.RecordRepo, m *Metrics, log *zap.Logger, observers ...RecordObserver) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	events := observer.NewSubject(observers...)
	events.SetErrorHandler(func(err error) {
		log.Warn("record observer failed", zap.Error(err))
	})
	return &Service{repo: repo, events: events, metrics: m, log: log, now: time.Now}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Accept validates raw as a submission record and stores it. The payload must
// be a JSON object; a string "clientID" member is indexed alongside it.
func (s *Service) Accept(ctx context.Context, raw []byte) (domain.StoredRecord, error) {
	raw = bytes.TrimSpace(raw)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		s.metrics.incRejected("malformed")
		return domain.StoredRecord{}, fmt.Errorf("%w: payload is not a json object", domain.ErrInvalidRecord)
	}

	var clientID string
	if v, ok := fields["clientID"]; ok {
		_ = json.Unmarshal(v, &clientID)
	}

	rec := domain.StoredRecord{
		ReceivedAt: s.now().UTC(),
		ClientID:   clientID,
		RemoteIP:   ClientIPFromContext(ctx),
		Payload:    append([]byte(nil), raw...),
	}
	saved, err := s.repo.Save(ctx, rec)
	if err != nil {
		s.metrics.incRejected("storage")
		return domain.StoredRecord{}, err
	}
	s.metrics.incAccepted()
	s.events.Publish(ctx, saved)
	return saved, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domain.StoredRecord, error) {
	if id <= 0 {
		return domain.StoredRecord{}, domain.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Recent returns up to limit records, newest first. Non-positive limits
// select DefaultLimit; larger ones are capped at MaxLimit.
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.StoredRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return s.repo.Recent(ctx, limit)
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	return s.repo.Stats(ctx)
}
