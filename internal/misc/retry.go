package misc

import (
	"context"
	"time"
)

// DefaultBackoff is the pause schedule between attempts against the database.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// Retry runs op until it succeeds, returns an error that retryable rejects, or
// the delays are exhausted. A nil retryable retries every error. The last
// error is returned; a done ctx wins over it.
func Retry(ctx context.Context, delays []time.Duration, retryable func(error) bool, op func(context.Context) error) error {
	attempt := 0
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if attempt >= len(delays) || (retryable != nil && !retryable(err)) {
			return err
		}

		t := time.NewTimer(delays[attempt])
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		attempt++
	}
}
