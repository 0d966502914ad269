package providers

import (
	"context"
	"time"

	"github.com/vshulcz/formmetrics/internal/domain"
)

// Time reports the submission time in epoch milliseconds.
type Time struct {
	now func() time.Time
}

func NewTime(now func() time.Time) *Time {
	if now == nil {
		now = time.Now
	}
	return &Time{now: now}
}

func (p *Time) Get(_ context.Context, sc *domain.SubmissionContext) (domain.Value, error) {
	at := sc.At
	if at.IsZero() {
		at = p.now()
	}
	return domain.Int(at.UnixMilli()), nil
}
