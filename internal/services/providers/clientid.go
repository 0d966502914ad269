package providers

import (
	"context"

	"github.com/vshulcz/formmetrics/internal/domain"
)

// Identity yields the persistent client id, or false when none is available.
type Identity interface {
	Get() (string, bool)
}

// ClientID reports the client id, or null when identity failed.
type ClientID struct {
	id Identity
}

func NewClientID(id Identity) *ClientID { return &ClientID{id: id} }

func (p *ClientID) Get(context.Context, *domain.SubmissionContext) (domain.Value, error) {
	id, ok := p.id.Get()
	if !ok {
		return domain.Null(), nil
	}
	return domain.String(id), nil
}
