package providers

import (
	"context"
	"fmt"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// Password reports saved form logins for the document and action origins.
type Password struct {
	store ports.LoginStore
}

func NewPassword(store ports.LoginStore) *Password { return &Password{store: store} }

func (p *Password) Get(_ context.Context, sc *domain.SubmissionContext) (domain.Value, error) {
	if sc.Document == nil {
		return domain.Value{}, domain.ErrNoDocument
	}
	if sc.Action == nil {
		return domain.Value{}, domain.ErrNoAction
	}

	docOrigin := FormatOrigin(sc.Document)
	docCount, err := p.store.CountLogins(docOrigin)
	if err != nil {
		return domain.Value{}, fmt.Errorf("count logins for %s: %w", docOrigin, err)
	}

	actionCount := docCount
	if actionOrigin := FormatOrigin(sc.Action); actionOrigin != docOrigin {
		actionCount, err = p.store.CountLogins(actionOrigin)
		if err != nil {
			return domain.Value{}, fmt.Errorf("count logins for %s: %w", actionOrigin, err)
		}
	}

	return domain.Object(
		domain.F("documentCount", domain.Int(int64(docCount))),
		domain.F("actionCount", domain.Int(int64(actionCount))),
	), nil
}
