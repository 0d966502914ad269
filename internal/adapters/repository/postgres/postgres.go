// Package postgres implements a Postgres-backed record repository.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/misc"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// Repo persists records in Postgres with retryable operations.
type Repo struct {
	db *sql.DB
}

var _ ports.RecordRepo = (*Repo)(nil)

var retryablePGCodes = map[string]struct{}{
	pgerrcode.ConnectionException:                           {},
	pgerrcode.ConnectionDoesNotExist:                        {},
	pgerrcode.ConnectionFailure:                             {},
	pgerrcode.SQLClientUnableToEstablishSQLConnection:       {},
	pgerrcode.SQLServerRejectedEstablishmentOfSQLConnection: {},
	pgerrcode.TransactionResolutionUnknown:                  {},
	pgerrcode.ProtocolViolation:                             {},
	pgerrcode.SerializationFailure:                          {},
	pgerrcode.DeadlockDetected:                              {},
	pgerrcode.LockNotAvailable:                              {},
	pgerrcode.TooManyConnections:                            {},
	pgerrcode.AdminShutdown:                                 {},
	pgerrcode.CrashShutdown:                                 {},
	pgerrcode.CannotConnectNow:                              {},
	pgerrcode.QueryCanceled:                                 {},
}

const selectColumns = `SELECT id, received_at, client_id, remote_ip, payload FROM formmetrics_records`

// New returns a Postgres-backed repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Save inserts rec and returns it with the id assigned by the database.
func (r *Repo) Save(ctx context.Context, rec domain.StoredRecord) (domain.StoredRecord, error) {
	const q = `
INSERT INTO formmetrics_records (received_at, client_id, remote_ip, payload)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4)
RETURNING id;`
	var id int64
	op := func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, q, rec.ReceivedAt, rec.ClientID, rec.RemoteIP, string(rec.Payload)).Scan(&id)
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		return domain.StoredRecord{}, err
	}
	rec.ID = id
	return rec, nil
}

// Get reads a single record by id.
func (r *Repo) Get(ctx context.Context, id int64) (domain.StoredRecord, error) {
	const q = selectColumns + ` WHERE id=$1`
	var rec domain.StoredRecord
	op := func(ctx context.Context) error {
		var err error
		rec, err = scanRecord(r.db.QueryRowContext(ctx, q, id))
		return err
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StoredRecord{}, domain.ErrNotFound
		}
		return domain.StoredRecord{}, err
	}
	return rec, nil
}

// Recent loads up to limit records, newest first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]domain.StoredRecord, error) {
	const q = selectColumns + ` ORDER BY id DESC LIMIT $1`
	var out []domain.StoredRecord
	op := func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, q, limit)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		recs := make([]domain.StoredRecord, 0, limit)
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = recs
		return nil
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats aggregates record and distinct client counts.
func (r *Repo) Stats(ctx context.Context) (domain.Stats, error) {
	const q = `SELECT count(*), count(DISTINCT client_id), max(received_at) FROM formmetrics_records`
	var st domain.Stats
	op := func(ctx context.Context) error {
		var last sql.NullTime
		if err := r.db.QueryRowContext(ctx, q).Scan(&st.Records, &st.Clients, &last); err != nil {
			return err
		}
		st.LastReceived = time.Time{}
		if last.Valid {
			st.LastReceived = last.Time.UTC()
		}
		return nil
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		return domain.Stats{}, err
	}
	return st, nil
}

// Ping verifies the database connection using a short-lived context.
func (r *Repo) Ping(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, r.db.PingContext)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.StoredRecord, error) {
	var (
		rec      domain.StoredRecord
		client   sql.NullString
		remoteIP sql.NullString
		payload  []byte
	)
	if err := row.Scan(&rec.ID, &rec.ReceivedAt, &client, &remoteIP, &payload); err != nil {
		return domain.StoredRecord{}, err
	}
	rec.ReceivedAt = rec.ReceivedAt.UTC()
	rec.ClientID = client.String
	rec.RemoteIP = remoteIP.String
	rec.Payload = payload
	return rec, nil
}

// IsRetryable reports whether the error should trigger a retry according to Postgres semantics.
func IsRetryable(err error) bool {
	return isRetryablePG(err)
}

func isRetryablePG(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return isRetryablePGCode(string(pqe.Code))
	}
	return false
}

func isRetryablePGCode(code string) bool {
	if _, ok := retryablePGCodes[code]; ok {
		return true
	}
	if strings.HasPrefix(code, "08") {
		return true
	}
	if strings.HasPrefix(code, "40") {
		return true
	}
	return false
}
