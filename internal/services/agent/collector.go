package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/formmetrics/internal/domain"
)

// DefaultCollectBudget bounds the context deadline handed to providers.
const DefaultCollectBudget = 50 * time.Millisecond

// Collector runs every registered provider against a submission and merges
// the results into one record.
type Collector struct {
	log       *zap.Logger
	providers []NamedProvider
	budget    time.Duration
}

// NewCollector seals reg and snapshots its providers.
func NewCollector(reg *Registry, budget time.Duration, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	if budget <= 0 {
		budget = DefaultCollectBudget
	}
	reg.Seal()
	return &Collector{providers: reg.All(), budget: budget, log: log}
}

// Collect returns one entry per provider. A provider that fails or panics is
// recorded as null and logged; the others still run.
func (c *Collector) Collect(ctx context.Context, sc *domain.SubmissionContext) domain.Record {
	rec := domain.NewRecord(len(c.providers))
	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	for _, np := range c.providers {
		start := time.Now()
		v, err := invoke(ctx, np, sc)
		if err != nil {
			c.log.Warn("provider failed",
				zap.String("provider", np.Name),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			v = domain.Null()
		}
		rec.Set(np.Name, v)
	}
	return rec
}

func invoke(ctx context.Context, np NamedProvider, sc *domain.SubmissionContext) (v domain.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = domain.Null(), fmt.Errorf("provider %q panicked: %v", np.Name, r)
		}
	}()
	return np.Provider.Get(ctx, sc)
}
