package providers

import (
	"context"
	"fmt"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// Bookmarks reports the number of bookmarks on the form document's host.
type Bookmarks struct {
	store ports.BookmarkStore
}

func NewBookmarks(store ports.BookmarkStore) *Bookmarks { return &Bookmarks{store: store} }

func (p *Bookmarks) Get(_ context.Context, sc *domain.SubmissionContext) (domain.Value, error) {
	if sc.Document == nil {
		return domain.Value{}, domain.ErrNoDocument
	}
	n, err := p.store.BookmarkCount(sc.Document.Hostname())
	if err != nil {
		return domain.Value{}, fmt.Errorf("bookmark count: %w", err)
	}
	return domain.Int(int64(n)), nil
}
