package providers

import (
	"context"
	"fmt"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// History reports how often the form document's host was visited per day.
type History struct {
	store ports.HistoryStore
}

func NewHistory(store ports.HistoryStore) *History { return &History{store: store} }

func (p *History) Get(_ context.Context, sc *domain.SubmissionContext) (domain.Value, error) {
	if sc.Document == nil {
		return domain.Value{}, domain.ErrNoDocument
	}
	visits, err := p.store.Visits(sc.Document.Hostname())
	if err != nil {
		return domain.Value{}, fmt.Errorf("history visits: %w", err)
	}
	return domain.Ints(DayHistogram(visits, sc.At)), nil
}
