package ports

import (
	"context"
	"time"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/pkg/observer"
)

// Provider produces one named field of a submission record. Get runs inline
// with the host's submission handling and must not block.
type Provider interface {
	Get(ctx context.Context, sc *domain.SubmissionContext) (domain.Value, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, sc *domain.SubmissionContext) (domain.Value, error)

// Get calls f.
func (f ProviderFunc) Get(ctx context.Context, sc *domain.SubmissionContext) (domain.Value, error) {
	return f(ctx, sc)
}

// Transport delivers one serialized record to the collector.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
}

// PrefStore is the host's string preference storage.
type PrefStore interface {
	GetString(key string) (string, error)
	SetString(key, value string) error
}

// HistoryStore returns visit times recorded for an exact host name.
type HistoryStore interface {
	Visits(host string) ([]time.Time, error)
}

// BookmarkStore counts bookmarks whose address has the given host.
type BookmarkStore interface {
	BookmarkCount(host string) (int, error)
}

// LoginStore counts saved form credentials for a formatted origin such as "https://example.com:8443".
type LoginStore interface {
	CountLogins(origin string) (int, error)
}

// TabStore reports whether the tab holding the top-level window is pinned.
type TabStore interface {
	Pinned(topWindowID string) (pinned, found bool)
}

// PrivacyMode exposes the host's private browsing flag.
type PrivacyMode interface {
	PrivateBrowsing() bool
}

// Refresher re-materializes a store from its backing source.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// SubmissionObserver is notified before a form is submitted. Returning false
// would cancel the submission.
type SubmissionObserver = observer.Observer[domain.SubmissionEvent]

// SubmissionHub is the host notification service for form submissions.
type SubmissionHub interface {
	Attach(observers ...SubmissionObserver)
	Detach(o SubmissionObserver) bool
}
