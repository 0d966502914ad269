package providers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"
)

type sleepy struct{}

func (sleepy) Get(ctx context.Context) (int, error) {
	time.Sleep(time.Millisecond) // want `provider Get must not block: call to time.Sleep`
	return 0, nil
}

type remote struct{ hc *http.Client }

func (r remote) Get(ctx context.Context) (int, error) {
	resp, err := r.hc.Get("http://example.com") // want `provider Get must not block: call to \(\*net/http.Client\).Get`
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	_, _ = http.Get("http://example.com") // want `provider Get must not block: call to net/http.Get`
	return 0, nil
}

type disk struct{ path string }

func (d *disk) Get(ctx context.Context) (int, error) {
	b, err := os.ReadFile(d.path) // want `provider Get must not block: call to os.ReadFile`
	return len(b), err
}

type db struct{ db *sql.DB }

func (d db) Get(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, "SELECT 1").Scan(&n) // want `provider Get must not block: call to \(\*database/sql.DB\).QueryRowContext`
	return n, err
}

type memory struct{ counts map[string]int }

func (m memory) Get(ctx context.Context) (int, error) {
	_ = time.Now()
	return m.counts["a"], nil
}

func refresh(path string) ([]byte, error) {
	return os.ReadFile(path)
}

type other struct{}

func (other) Load(path string) ([]byte, error) {
	return os.ReadFile(path)
}
