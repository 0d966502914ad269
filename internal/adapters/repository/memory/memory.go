// Package memory implements an in-memory record repository.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// Repo keeps records in memory with coarse-grained RW locking.
type Repo struct {
	byID    map[int64]int
	clients map[string]struct{}
	records []domain.StoredRecord
	lastID  int64
	mu      sync.RWMutex
}

var _ ports.RecordRepo = (*Repo)(nil)

// New returns an empty in-memory repository.
func New() *Repo {
	return &Repo{
		byID:    make(map[int64]int),
		clients: make(map[string]struct{}),
	}
}

// Save assigns the next id unless rec already carries one, as restored
// records do. Saving an id that is already present replaces that record.
func (r *Repo) Save(_ context.Context, rec domain.StoredRecord) (domain.StoredRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID <= 0 {
		rec.ID = r.lastID + 1
	}
	rec.Payload = slices.Clone(rec.Payload)
	if i, ok := r.byID[rec.ID]; ok {
		r.records[i] = rec
	} else {
		r.byID[rec.ID] = len(r.records)
		r.records = append(r.records, rec)
	}
	r.lastID = max(r.lastID, rec.ID)
	if rec.ClientID != "" {
		r.clients[rec.ClientID] = struct{}{}
	}
	return rec, nil
}

// Get returns the record with the given id or domain.ErrNotFound.
func (r *Repo) Get(_ context.Context, id int64) (domain.StoredRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return domain.StoredRecord{}, domain.ErrNotFound
	}
	return r.records[i], nil
}

// Recent returns up to limit records ordered by descending id.
func (r *Repo) Recent(_ context.Context, limit int) ([]domain.StoredRecord, error) {
	r.mu.RLock()
	out := slices.Clone(r.records)
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.StoredRecord) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repo) Stats(_ context.Context) (domain.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := domain.Stats{
		Records: int64(len(r.records)),
		Clients: int64(len(r.clients)),
	}
	for _, rec := range r.records {
		if rec.ReceivedAt.After(st.LastReceived) {
			st.LastReceived = rec.ReceivedAt
		}
	}
	return st, nil
}

// Ping reports that the in-memory store is not backed by a real database.
func (*Repo) Ping(context.Context) error {
	return errors.New("db not configured")
}
