// Package sqlite indexes a Firefox places.sqlite database into memory so that
// history and bookmark lookups never touch the disk.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// FileName is the history database inside a browser profile.
const FileName = "places.sqlite"

const (
	visitsQuery = `SELECT p.rev_host, v.visit_date
FROM moz_historyvisits v
JOIN moz_places p ON p.id = v.place_id
WHERE p.rev_host IS NOT NULL`

	bookmarksQuery = `SELECT p.rev_host, COUNT(*)
FROM moz_bookmarks b
JOIN moz_places p ON p.id = b.fk
WHERE b.type = 1 AND p.rev_host IS NOT NULL
GROUP BY p.rev_host`
)

type index struct {
	visits    map[string][]time.Time
	bookmarks map[string]int
}

// Places serves history and bookmark lookups from the last successful
// Refresh. Until one succeeds, lookups fail with domain.ErrStoreUnavailable.
type Places struct {
	idx  atomic.Pointer[index]
	path string
}

var (
	_ ports.HistoryStore  = (*Places)(nil)
	_ ports.BookmarkStore = (*Places)(nil)
	_ ports.Refresher     = (*Places)(nil)
)

// New returns a store over the database at path. Nothing is read until Refresh.
func New(path string) *Places {
	return &Places{path: path}
}

// Visits returns the visit times recorded for exactly host.
func (p *Places) Visits(host string) ([]time.Time, error) {
	idx := p.idx.Load()
	if idx == nil {
		return nil, fmt.Errorf("places %s: %w", p.path, domain.ErrStoreUnavailable)
	}
	return slices.Clone(idx.visits[strings.ToLower(host)]), nil
}

// BookmarkCount returns the number of bookmarks whose address is on host.
func (p *Places) BookmarkCount(host string) (int, error) {
	idx := p.idx.Load()
	if idx == nil {
		return 0, fmt.Errorf("places %s: %w", p.path, domain.ErrStoreUnavailable)
	}
	return idx.bookmarks[strings.ToLower(host)], nil
}

// Refresh rebuilds the index from the database. On failure the previous
// index stays in place.
func (p *Places) Refresh(ctx context.Context) (retErr error) {
	if _, err := os.Stat(p.path); err != nil {
		return fmt.Errorf("places: %w", err)
	}

	dsn, err := readOnlyDSN(p.path)
	if err != nil {
		return fmt.Errorf("places: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open places: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close places: %w", cerr)
		}
	}()

	idx := &index{visits: map[string][]time.Time{}, bookmarks: map[string]int{}}
	if err := loadVisits(ctx, db, idx); err != nil {
		return err
	}
	if err := loadBookmarks(ctx, db, idx); err != nil {
		return err
	}
	p.idx.Store(idx)
	return nil
}

func loadVisits(ctx context.Context, db *sql.DB, idx *index) error {
	rows, err := db.QueryContext(ctx, visitsQuery)
	if err != nil {
		return fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var revHost string
		var visitDate int64
		if err := rows.Scan(&revHost, &visitDate); err != nil {
			return fmt.Errorf("scan visit: %w", err)
		}
		host := HostFromRevHost(revHost)
		idx.visits[host] = append(idx.visits[host], time.UnixMicro(visitDate))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate visits: %w", err)
	}
	return nil
}

func loadBookmarks(ctx context.Context, db *sql.DB, idx *index) error {
	rows, err := db.QueryContext(ctx, bookmarksQuery)
	if err != nil {
		return fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var revHost string
		var n int
		if err := rows.Scan(&revHost, &n); err != nil {
			return fmt.Errorf("scan bookmark: %w", err)
		}
		idx.bookmarks[HostFromRevHost(revHost)] += n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate bookmarks: %w", err)
	}
	return nil
}

// HostFromRevHost undoes the reversed host encoding of moz_places.rev_host,
// e.g. "moc.elpmaxe." becomes "example.com".
func HostFromRevHost(rev string) string {
	r := []rune(rev)
	slices.Reverse(r)
	return strings.ToLower(strings.TrimPrefix(string(r), "."))
}

// readOnlyDSN builds a file: URI. Relative paths would otherwise be read as
// the URI authority.
func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
	return u.String(), nil
}
