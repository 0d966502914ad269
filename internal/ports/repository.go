package ports

import (
	"context"

	"github.com/vshulcz/formmetrics/internal/domain"
)

// RecordRepo stores records accepted by the collector server.
type RecordRepo interface {
	Save(ctx context.Context, rec domain.StoredRecord) (domain.StoredRecord, error)
	Get(ctx context.Context, id int64) (domain.StoredRecord, error)
	Recent(ctx context.Context, limit int) ([]domain.StoredRecord, error)
	Stats(ctx context.Context) (domain.Stats, error)
	Ping(ctx context.Context) error
}

// Archive keeps an append-only copy of accepted records and can replay it.
type Archive interface {
	Append(ctx context.Context, rec domain.StoredRecord) error
	Restore(ctx context.Context, repo RecordRepo) (int, error)
}
