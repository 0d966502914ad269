package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/misc"
)

var recordColumns = []string{"id", "received_at", "client_id", "remote_ip", "payload"}

func TestRepo_Save(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	const pat = `INSERT INTO formmetrics_records (received_at, client_id, remote_ip, payload)`

	tests := []struct {
		name    string
		setup   func(sqlmock.Sqlmock)
		wantID  int64
		wantErr bool
	}{
		{
			"ok",
			func(m sqlmock.Sqlmock) {
				m.ExpectQuery(qm(pat)).WithArgs(at, "abc", "10.0.0.1", `{"clientID":"abc"}`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
			},
			7, false,
		},
		{
			"db error",
			func(m sqlmock.Sqlmock) {
				m.ExpectQuery(qm(pat)).WillReturnError(errors.New("boom"))
			},
			0, true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, mock, st, done := newMock(t)
			defer done()
			tc.setup(mock)

			got, err := st.Save(context.TODO(), domain.StoredRecord{
				ReceivedAt: at,
				ClientID:   "abc",
				RemoteIP:   "10.0.0.1",
				Payload:    []byte(`{"clientID":"abc"}`),
			})
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got.ID != tc.wantID {
				t.Fatalf("id = %d, want %d", got.ID, tc.wantID)
			}
		})
	}
}

func TestRepo_Get(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	const pat = `SELECT id, received_at, client_id, remote_ip, payload FROM formmetrics_records WHERE id=\$1`

	t.Run("ok", func(t *testing.T) {
		_, mock, st, done := newMock(t)
		defer done()
		mock.ExpectQuery(pat).WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(int64(3), at, nil, "::1", []byte(`{"a":1}`)))

		got, err := st.Get(context.TODO(), 3)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.ID != 3 || got.ClientID != "" || got.RemoteIP != "::1" || string(got.Payload) != `{"a":1}` || !got.ReceivedAt.Equal(at) {
			t.Fatalf("unexpected record %+v", got)
		}
	})

	t.Run("no rows", func(t *testing.T) {
		_, mock, st, done := newMock(t)
		defer done()
		mock.ExpectQuery(pat).WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows(recordColumns))

		if _, err := st.Get(context.TODO(), 9); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func TestRepo_Recent(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	const pat = `SELECT id, received_at, client_id, remote_ip, payload FROM formmetrics_records ORDER BY id DESC LIMIT \$1`

	t.Run("ok", func(t *testing.T) {
		_, mock, st, done := newMock(t)
		defer done()
		mock.ExpectQuery(pat).WithArgs(int64(2)).WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(int64(5), at, "b", nil, []byte(`{}`)).
			AddRow(int64(4), at, "a", nil, []byte(`{}`)))

		got, err := st.Recent(context.TODO(), 2)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(got) != 2 || got[0].ID != 5 || got[1].ClientID != "a" {
			t.Fatalf("unexpected records %+v", got)
		}
	})

	t.Run("scan error", func(t *testing.T) {
		_, mock, st, done := newMock(t)
		defer done()
		mock.ExpectQuery(pat).WithArgs(int64(1)).WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow("not-an-id", at, nil, nil, []byte(`{}`)))

		if _, err := st.Recent(context.TODO(), 1); err == nil {
			t.Fatal("expected scan error")
		}
	})
}

func TestRepo_Stats(t *testing.T) {
	const pat = `SELECT count\(\*\), count\(DISTINCT client_id\), max\(received_at\) FROM formmetrics_records`
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		row  []driver.Value
		want domain.Stats
	}{
		{"populated", []driver.Value{int64(4), int64(2), at}, domain.Stats{Records: 4, Clients: 2, LastReceived: at}},
		{"empty", []driver.Value{int64(0), int64(0), nil}, domain.Stats{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, mock, st, done := newMock(t)
			defer done()
			mock.ExpectQuery(pat).WillReturnRows(sqlmock.NewRows([]string{"count", "count", "max"}).AddRow(tc.row...))

			got, err := st.Stats(context.TODO())
			if err != nil {
				t.Fatalf("Stats: %v", err)
			}
			if got.Records != tc.want.Records || got.Clients != tc.want.Clients || !got.LastReceived.Equal(tc.want.LastReceived) {
				t.Fatalf("stats = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRepo_Ping(t *testing.T) {
	snil := &Repo{}
	if err := snil.Ping(context.TODO()); err == nil {
		t.Fatal("expected error for nil db")
	}

	_, mock, st, done := newMockWithPing(t)
	defer done()

	mock.ExpectPing().WillReturnError(nil)
	if err := st.Ping(context.TODO()); err != nil {
		t.Fatalf("Ping err: %v", err)
	}

	mock.ExpectPing().WillReturnError(errors.New("down"))
	if err := st.Ping(context.TODO()); err == nil {
		t.Fatal("expected Ping error")
	}
}

func qm(s string) string {
	return regexp.QuoteMeta(s)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Repo, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	st := &Repo{db: db}
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
		db.Close()
	}
	return db, mock, st, cleanup
}

func newMockWithPing(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Repo, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	st := &Repo{db: db}
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
		_ = db.Close()
	}
	return db, mock, st, cleanup
}

func Test_isRetryablePG(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"driver.ErrBadConn", driver.ErrBadConn, true},
		{"net.OpError", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"pq 08 (ConnectionFailure)", &pq.Error{Code: pq.ErrorCode(pgerrcode.ConnectionFailure)}, true},
		{"pq 08 (ConnectionException)", &pq.Error{Code: pq.ErrorCode(pgerrcode.ConnectionException)}, true},
		{"pq 40 (SerializationFailure)", &pq.Error{Code: pq.ErrorCode(pgerrcode.SerializationFailure)}, true},
		{"pq ProtocolViolation", &pq.Error{Code: pq.ErrorCode(pgerrcode.ProtocolViolation)}, true},
		{"pq UniqueViolation (non-retryable)", &pq.Error{Code: pq.ErrorCode(pgerrcode.UniqueViolation)}, false},
		{"generic", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryablePG(tt.err); got != tt.want {
				t.Fatalf("isRetryablePG(%T) = %v, want %v", tt.err, got, tt.want)
			}
			if got := IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable(%T) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func fastBackoff(t *testing.T) {
	t.Helper()
	orig := misc.DefaultBackoff
	misc.DefaultBackoff = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { misc.DefaultBackoff = orig })
}

func TestRepo_Save_Retry(t *testing.T) {
	fastBackoff(t)

	_, mock, st, done := newMock(t)
	defer done()

	const pat = `INSERT INTO formmetrics_records`
	mock.ExpectQuery(pat).WillReturnError(&pq.Error{Code: pq.ErrorCode(pgerrcode.ConnectionFailure)})
	mock.ExpectQuery(pat).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	got, err := st.Save(context.Background(), domain.StoredRecord{Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("id = %d, want 1", got.ID)
	}
}

func TestRepo_Get_Retry(t *testing.T) {
	fastBackoff(t)

	_, mock, st, done := newMock(t)
	defer done()

	const pat = `FROM formmetrics_records WHERE id=\$1`
	at := time.Unix(0, 0).UTC()
	mock.ExpectQuery(pat).WithArgs(int64(2)).
		WillReturnError(&net.OpError{Op: "read", Err: errors.New("reset")})
	mock.ExpectQuery(pat).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(int64(2), at, "c", nil, []byte(`{}`)))

	got, err := st.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ClientID != "c" {
		t.Fatalf("client = %q, want c", got.ClientID)
	}
}

func TestRepo_Save_NoRetry(t *testing.T) {
	_, mock, st, done := newMock(t)
	defer done()

	mock.ExpectQuery(`INSERT INTO formmetrics_records`).
		WillReturnError(&pq.Error{Code: pq.ErrorCode(pgerrcode.UniqueViolation)})

	if _, err := st.Save(context.Background(), domain.StoredRecord{Payload: []byte(`{}`)}); err == nil {
		t.Fatal("expected error")
	}
}
