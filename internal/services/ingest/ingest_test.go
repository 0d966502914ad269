package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/pkg/observer"
)

type fakeRepo struct {
	mu        sync.Mutex
	saved     []domain.StoredRecord
	saveErr   error
	pingErr   error
	lastLimit int
}

func (r *fakeRepo) Save(_ context.Context, rec domain.StoredRecord) (domain.StoredRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return domain.StoredRecord{}, r.saveErr
	}
	rec.ID = int64(len(r.saved) + 1)
	r.saved = append(r.saved, rec)
	return rec, nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (domain.StoredRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 1 || int(id) > len(r.saved) {
		return domain.StoredRecord{}, domain.ErrNotFound
	}
	return r.saved[id-1], nil
}

func (r *fakeRepo) Recent(_ context.Context, limit int) ([]domain.StoredRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	return nil, nil
}

func (r *fakeRepo) Stats(context.Context) (domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.Stats{Records: int64(len(r.saved))}, nil
}

func (r *fakeRepo) Ping(context.Context) error { return r.pingErr }

func fixedNow() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestAccept(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantErr  bool
		clientID string
	}{
		{"object with client id", `{"clientID":"abc","time":1}`, false, "abc"},
		{"surrounding whitespace", "  {\"clientID\":\"x\"}\n", false, "x"},
		{"client id null", `{"clientID":null}`, false, ""},
		{"client id not a string", `{"clientID":42}`, false, ""},
		{"no client id", `{"form":{}}`, false, ""},
		{"array", `[1,2]`, true, ""},
		{"null", `null`, true, ""},
		{"string", `"hi"`, true, ""},
		{"truncated", `{"clientID":`, true, ""},
		{"empty", ``, true, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := New(repo, nil, nil)
			svc.now = fixedNow

			ctx := WithClientIP(context.Background(), "10.0.0.7")
			rec, err := svc.Accept(ctx, []byte(tc.raw))
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidRecord) {
					t.Fatalf("want ErrInvalidRecord, got %v", err)
				}
				if len(repo.saved) != 0 {
					t.Fatalf("rejected payload was stored")
				}
				return
			}
			if err != nil {
				t.Fatalf("Accept: %v", err)
			}
			if rec.ID != 1 || rec.ClientID != tc.clientID || rec.RemoteIP != "10.0.0.7" {
				t.Fatalf("unexpected record %+v", rec)
			}
			if !rec.ReceivedAt.Equal(fixedNow()) {
				t.Fatalf("received at %v", rec.ReceivedAt)
			}
		})
	}
}

func TestAccept_NotifiesObservers(t *testing.T) {
	var got []domain.StoredRecord
	obs := observer.ObserverFunc[domain.StoredRecord](func(_ context.Context, r domain.StoredRecord) bool {
		got = append(got, r)
		return true
	})
	panicky := observer.ObserverFunc[domain.StoredRecord](func(context.Context, domain.StoredRecord) bool {
		panic("boom")
	})
	repo := &fakeRepo{}
	svc := New(repo, nil, nil, panicky, obs)

	rec, err := svc.Accept(context.Background(), []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if diff := cmp.Diff([]domain.StoredRecord{rec}, got); diff != "" {
		t.Fatalf("observer saw (-want +got):\n%s", diff)
	}
}

func TestAccept_StorageError(t *testing.T) {
	called := false
	obs := observer.ObserverFunc[domain.StoredRecord](func(context.Context, domain.StoredRecord) bool {
		called = true
		return true
	})
	boom := errors.New("boom")
	svc := New(&fakeRepo{saveErr: boom}, nil, nil, obs)
	if _, err := svc.Accept(context.Background(), []byte(`{}`)); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if called {
		t.Fatal("observer notified about a record that was not stored")
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	svc := New(&fakeRepo{}, m, nil)

	_, _ = svc.Accept(context.Background(), []byte(`{}`))
	_, _ = svc.Accept(context.Background(), []byte(`{}`))
	_, _ = svc.Accept(context.Background(), []byte(`[]`))

	if got := testutil.ToFloat64(m.accepted); got != 2 {
		t.Fatalf("accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rejected.WithLabelValues("malformed")); got != 1 {
		t.Fatalf("rejected = %v, want 1", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n != 2 {
		t.Fatalf("gathered %d metrics, err %v", n, err)
	}
}

func TestRecent_Limit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{10, 10},
		{MaxLimit, MaxLimit},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tc := range tests {
		repo := &fakeRepo{}
		svc := New(repo, nil, nil)
		if _, err := svc.Recent(context.Background(), tc.in); err != nil {
			t.Fatal(err)
		}
		if repo.lastLimit != tc.want {
			t.Fatalf("Recent(%d) asked repo for %d, want %d", tc.in, repo.lastLimit, tc.want)
		}
	}
}

func TestGet(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, nil, nil)
	rec, _ := svc.Accept(context.Background(), []byte(`{"clientID":"c"}`))

	got, err := svc.Get(context.Background(), rec.ID)
	if err != nil || got.ClientID != "c" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	for _, id := range []int64{0, -1, 99} {
		if _, err := svc.Get(context.Background(), id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get(%d): want ErrNotFound, got %v", id, err)
		}
	}
}

func TestPingAndStats(t *testing.T) {
	boom := errors.New("down")
	svc := New(&fakeRepo{pingErr: boom}, nil, nil)
	if err := svc.Ping(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Ping: %v", err)
	}
	st, err := svc.Stats(context.Background())
	if err != nil || st.Records != 0 {
		t.Fatalf("Stats = %+v, %v", st, err)
	}
}

func TestClientIPFromContext(t *testing.T) {
	if got := ClientIPFromContext(context.Background()); got != "" {
		t.Fatalf("empty ctx gave %q", got)
	}
	//nolint:staticcheck
	if got := ClientIPFromContext(nil); got != "" {
		t.Fatalf("nil ctx gave %q", got)
	}
	if got := ClientIPFromContext(WithClientIP(context.Background(), "::1")); got != "::1" {
		t.Fatalf("got %q", got)
	}
}
