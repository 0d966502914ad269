package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/pkg/observer"
)

type stubCollector struct {
	panicMsg string
	seen     []*domain.SubmissionContext
}

func (c *stubCollector) Collect(_ context.Context, sc *domain.SubmissionContext) domain.Record {
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	c.seen = append(c.seen, sc)
	rec := domain.NewRecord(1)
	rec.Set("time", domain.Int(sc.At.UnixMilli()))
	return rec
}

type stubScheduler struct {
	records []domain.Record
	panics  bool
}

func (s *stubScheduler) Schedule(rec domain.Record) {
	if s.panics {
		panic("scheduler exploded")
	}
	s.records = append(s.records, rec)
}

func TestObserver_NotifyAlwaysAllows(t *testing.T) {
	tests := []struct {
		name      string
		collector *stubCollector
		scheduler *stubScheduler
		wantLog   bool
	}{
		{"normal", &stubCollector{}, &stubScheduler{}, false},
		{"collector panic", &stubCollector{panicMsg: "boom"}, &stubScheduler{}, true},
		{"scheduler panic", &stubCollector{}, &stubScheduler{panics: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := newObservedLogger()
			o := NewObserver(tt.collector, tt.scheduler, log)
			if !o.Notify(context.Background(), domain.SubmissionEvent{}) {
				t.Fatal("Notify vetoed a submission")
			}
			if got := logs.FilterMessage("submission observer panicked").Len() > 0; got != tt.wantLog {
				t.Fatalf("panic logged=%v want %v", got, tt.wantLog)
			}
		})
	}
}

func TestObserver_NotifyCollectsAndSchedules(t *testing.T) {
	col, sch := &stubCollector{}, &stubScheduler{}
	o := NewObserver(col, sch, nil)
	at := time.UnixMilli(1_700_000_000_000)
	o.now = func() time.Time { return at }

	evt := domain.SubmissionEvent{
		Window:    domain.WindowRef{ID: "w1", DocumentURI: "https://a.example/login"},
		ActionURI: "https://a.example/session",
	}
	o.Notify(context.Background(), evt)

	if len(col.seen) != 1 || len(sch.records) != 1 {
		t.Fatalf("collected=%d scheduled=%d", len(col.seen), len(sch.records))
	}
	sc := col.seen[0]
	if !sc.At.Equal(at) || sc.Document.Host != "a.example" || sc.Action.Path != "/session" {
		t.Fatalf("unexpected context: %+v", sc)
	}
	if v, _ := sch.records[0].Get("time"); v.Interface() != int64(1_700_000_000_000) {
		t.Fatalf("scheduled record time=%v", v.Interface())
	}
}

func TestObserver_RegistrationStateMachine(t *testing.T) {
	hub := observer.NewSubject[domain.SubmissionEvent]()
	sch := &stubScheduler{}
	o := NewObserver(&stubCollector{}, sch, nil)

	if err := o.Unregister(); !errors.Is(err, domain.ErrNotRegistered) {
		t.Fatalf("Unregister before Register: %v", err)
	}
	if err := o.Register(hub); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := o.Register(hub); !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Fatalf("second Register: %v", err)
	}
	if hub.Len() != 1 || !o.Registered() {
		t.Fatalf("hub observers=%d registered=%v", hub.Len(), o.Registered())
	}

	if !hub.Publish(context.Background(), domain.SubmissionEvent{}) {
		t.Fatal("hub publish vetoed")
	}
	if len(sch.records) != 1 {
		t.Fatalf("scheduled=%d after publish", len(sch.records))
	}

	if err := o.Unregister(); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if hub.Len() != 0 || o.Registered() {
		t.Fatalf("hub observers=%d registered=%v after Unregister", hub.Len(), o.Registered())
	}
	hub.Publish(context.Background(), domain.SubmissionEvent{})
	if len(sch.records) != 1 {
		t.Fatal("unregistered observer still notified")
	}

	if err := o.Register(hub); err != nil {
		t.Fatalf("re-Register: %v", err)
	}
}
