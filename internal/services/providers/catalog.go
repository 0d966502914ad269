// Package providers holds the metric providers that fill a submission record.
// Every provider reads only the submission context and in-memory snapshots, so
// Get never blocks.
package providers

import (
	"time"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

const (
	NameClientID        = "clientID"
	NameTime            = "time"
	NameForm            = "form"
	NameURI             = "uri"
	NameHistory         = "history"
	NameBookmarks       = "bookmarks"
	NamePassword        = "password"
	NamePinned          = "pinned"
	NamePrivateBrowsing = "privateBrowsing"
	NamePlatform        = "platform"
)

// DefaultNames is the provider set of a stock installation, in record order.
var DefaultNames = []string{
	NameClientID, NameTime, NameForm, NameURI, NameHistory,
	NameBookmarks, NamePassword, NamePinned, NamePrivateBrowsing,
}

// Deps carries the stores providers read from. A nil store disables only the
// providers that need it.
type Deps struct {
	Identity  Identity
	History   ports.HistoryStore
	Bookmarks ports.BookmarkStore
	Logins    ports.LoginStore
	Tabs      ports.TabStore
	Privacy   ports.PrivacyMode
	Platform  *domain.Platform
	Now       func() time.Time
}

// Unavailable stands in for profile stores when no browser profile is
// configured. Every lookup fails, so the providers report null.
type Unavailable struct{}

var (
	_ ports.HistoryStore  = Unavailable{}
	_ ports.BookmarkStore = Unavailable{}
	_ ports.LoginStore    = Unavailable{}
)

func (Unavailable) Visits(string) ([]time.Time, error) { return nil, domain.ErrStoreUnavailable }

func (Unavailable) BookmarkCount(string) (int, error) { return 0, domain.ErrStoreUnavailable }

func (Unavailable) CountLogins(string) (int, error) { return 0, domain.ErrStoreUnavailable }

// Catalog maps provider names to the providers buildable from deps.
func Catalog(deps Deps) map[string]ports.Provider {
	c := map[string]ports.Provider{
		NameTime: NewTime(deps.Now),
		NameForm: Form{},
		NameURI:  URI{},
	}
	if deps.Identity != nil {
		c[NameClientID] = NewClientID(deps.Identity)
	}
	if deps.History != nil {
		c[NameHistory] = NewHistory(deps.History)
	}
	if deps.Bookmarks != nil {
		c[NameBookmarks] = NewBookmarks(deps.Bookmarks)
	}
	if deps.Logins != nil {
		c[NamePassword] = NewPassword(deps.Logins)
	}
	if deps.Tabs != nil {
		c[NamePinned] = NewPinned(deps.Tabs)
	}
	if deps.Privacy != nil {
		c[NamePrivateBrowsing] = NewPrivateBrowsing(deps.Privacy)
	}
	if deps.Platform != nil {
		c[NamePlatform] = NewPlatform(*deps.Platform)
	}
	return c
}
