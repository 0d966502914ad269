// Package file keeps an append-only NDJSON copy of accepted records.
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

const maxLine = 4 << 20

// Archive appends records to a local newline-delimited JSON file.
type Archive struct {
	log  *zap.Logger
	path string
	mu   sync.Mutex
}

var _ ports.Archive = (*Archive)(nil)

// New creates an Archive backed by path. An empty path disables it.
func New(path string, log *zap.Logger) *Archive {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archive{path: path, log: log}
}

// Append marshals rec and appends it as one line.
func (a *Archive) Append(_ context.Context, rec domain.StoredRecord) (retErr error) {
	if a == nil || a.path == "" {
		return nil
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close archive: %w", cerr)
		}
	}()

	if _, err := f.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// Notify archives a freshly stored record. Failures are logged and never
// veto anything.
func (a *Archive) Notify(ctx context.Context, rec domain.StoredRecord) bool {
	if err := a.Append(ctx, rec); err != nil {
		a.log.Warn("archive append failed", zap.Int64("id", rec.ID), zap.Error(err))
	}
	return true
}

// Restore replays the archive into repo and returns the number of records
// loaded. A missing file restores nothing. Undecodable lines are skipped.
func (a *Archive) Restore(ctx context.Context, repo ports.RecordRepo) (int, error) {
	if a == nil || a.path == "" {
		return 0, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Open(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	n, line := 0, 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return n, err
		}
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec domain.StoredRecord
		if err := json.Unmarshal(raw, &rec); err != nil || len(rec.Payload) == 0 {
			a.log.Warn("skip malformed archive line", zap.Int("line", line), zap.Error(err))
			continue
		}
		if _, err := repo.Save(ctx, rec); err != nil {
			return n, fmt.Errorf("restore record %d: %w", rec.ID, err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read archive: %w", err)
	}
	return n, nil
}
