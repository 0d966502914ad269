// Package file counts saved form logins from a Firefox logins.json file.
package file

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// FileName is the login store inside a browser profile.
const FileName = "logins.json"

type loginsFile struct {
	Logins []login `json:"logins"`
}

type login struct {
	HTTPRealm *string `json:"httpRealm"`
	Hostname  string  `json:"hostname"`
}

// Logins serves login counts from the last Refresh. Only form logins count;
// entries carrying an HTTP auth realm are skipped. Until a Refresh succeeds,
// lookups fail with domain.ErrStoreUnavailable.
type Logins struct {
	counts atomic.Pointer[map[string]int]
	path   string
}

var (
	_ ports.LoginStore = (*Logins)(nil)
	_ ports.Refresher  = (*Logins)(nil)
)

func New(path string) *Logins {
	return &Logins{path: path}
}

// CountLogins returns the number of form logins saved for origin.
func (l *Logins) CountLogins(origin string) (int, error) {
	counts := l.counts.Load()
	if counts == nil {
		return 0, fmt.Errorf("logins %s: %w", l.path, domain.ErrStoreUnavailable)
	}
	return (*counts)[strings.ToLower(origin)], nil
}

// Refresh re-reads the file. A missing file means no saved logins; any other
// failure keeps the previous counts.
func (l *Logins) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			empty := map[string]int{}
			l.counts.Store(&empty)
			return nil
		}
		return fmt.Errorf("read logins: %w", err)
	}

	var f loginsFile
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("decode logins: %w", err)
	}

	counts := make(map[string]int, len(f.Logins))
	for _, lg := range f.Logins {
		if lg.HTTPRealm != nil || lg.Hostname == "" {
			continue
		}
		counts[strings.ToLower(lg.Hostname)]++
	}
	l.counts.Store(&counts)
	return nil
}
