// Package replay emulates the browser side of the agent: it reads recorded
// submission events (one JSON object per line) and announces each one to the
// attached observers, tracking tab and privacy state on the way.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
	"github.com/vshulcz/formmetrics/pkg/observer"
)

const maxLineSize = 1 << 20

// Event is one recorded submission together with the browser state at the
// time it happened.
type Event struct {
	Pinned          *bool `json:"pinned,omitempty"`
	PrivateBrowsing *bool `json:"privateBrowsing,omitempty"`
	domain.SubmissionEvent
}

// Host replays events from a reader into its observers.
type Host struct {
	*observer.Subject[domain.SubmissionEvent]
	src     io.Reader
	log     *zap.Logger
	tabs    map[string]bool
	mu      sync.RWMutex
	private bool
}

var (
	_ ports.SubmissionHub = (*Host)(nil)
	_ ports.TabStore      = (*Host)(nil)
	_ ports.PrivacyMode   = (*Host)(nil)
)

func New(src io.Reader, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	subject := observer.NewSubject[domain.SubmissionEvent]()
	subject.SetErrorHandler(func(err error) {
		log.Error("submission observer failed", zap.Error(err))
	})
	return &Host{Subject: subject, src: src, log: log, tabs: map[string]bool{}}
}

// Open returns the event stream at path; "-" is standard input.
func Open(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	return f, nil
}

// Pinned reports the pinned state last seen for the tab of topWindowID.
func (h *Host) Pinned(topWindowID string) (pinned, found bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pinned, found = h.tabs[topWindowID]
	return pinned, found
}

// PrivateBrowsing reports the flag carried by the latest event.
func (h *Host) PrivateBrowsing() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.private
}

type line struct {
	text []byte
	n    int
}

// Run publishes every event until the stream ends, which returns nil, or ctx
// is done. Malformed lines are logged and skipped.
func (h *Host) Run(ctx context.Context) error {
	lines := make(chan line)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		rd := bufio.NewReaderSize(h.src, 64*1024)
		n := 0
		for {
			raw, tooLong, err := readLine(rd, maxLineSize)
			if len(raw) > 0 || tooLong || err == nil {
				n++
			}
			text := bytes.TrimSpace(raw)
			switch {
			case tooLong:
				h.log.Warn("skip oversized event", zap.Int("line", n), zap.Int("max_bytes", maxLineSize))
			case len(text) == 0 || text[0] == '#':
			default:
				select {
				case lines <- line{n: n, text: text}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				readErr <- err
				return
			}
		}
	}()

	published := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-readErr:
				default:
				}
				h.log.Info("event stream finished", zap.Int("published", published))
				if err != nil {
					return fmt.Errorf("read events: %w", err)
				}
				return ctx.Err()
			}
			if h.handle(ctx, l) {
				published++
			}
		}
	}
}

func (h *Host) handle(ctx context.Context, l line) bool {
	var evt Event
	if err := json.Unmarshal(l.text, &evt); err != nil {
		h.log.Warn("skip malformed event", zap.Int("line", l.n), zap.Error(err))
		return false
	}

	h.mu.Lock()
	if evt.Pinned != nil {
		top := evt.Window.TopID
		if top == "" {
			top = evt.Window.ID
		}
		h.tabs[top] = *evt.Pinned
	}
	if evt.PrivateBrowsing != nil {
		h.private = *evt.PrivateBrowsing
	}
	h.mu.Unlock()

	if !h.Publish(ctx, evt.SubmissionEvent) {
		h.log.Warn("submission vetoed", zap.Int("line", l.n))
	}
	return true
}

// readLine returns the next line without its size limit being fatal: a line
// longer than limit is drained and reported as tooLong with no text.
func readLine(rd *bufio.Reader, limit int) (text []byte, tooLong bool, err error) {
	for {
		var frag []byte
		frag, err = rd.ReadSlice('\n')
		if !tooLong {
			if len(text)+len(frag) > limit {
				tooLong, text = true, nil
			} else {
				text = append(text, frag...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return text, tooLong, err
	}
}
