package providers

import (
	"context"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// Pinned reports whether the tab holding the form is pinned, or null when the
// tab is unknown.
type Pinned struct {
	tabs ports.TabStore
}

func NewPinned(tabs ports.TabStore) *Pinned { return &Pinned{tabs: tabs} }

func (p *Pinned) Get(_ context.Context, sc *domain.SubmissionContext) (domain.Value, error) {
	pinned, found := p.tabs.Pinned(sc.Window.TopID)
	if !found {
		return domain.Null(), nil
	}
	return domain.Bool(pinned), nil
}

// PrivateBrowsing reports the host's private browsing flag.
type PrivateBrowsing struct {
	mode ports.PrivacyMode
}

func NewPrivateBrowsing(mode ports.PrivacyMode) *PrivateBrowsing {
	return &PrivateBrowsing{mode: mode}
}

func (p *PrivateBrowsing) Get(context.Context, *domain.SubmissionContext) (domain.Value, error) {
	return domain.Bool(p.mode.PrivateBrowsing()), nil
}
