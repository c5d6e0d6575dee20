package shared

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy controls how SQLite writes are retried on lock contention.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultRetryPolicy retries up to 5 times starting at 25ms.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Delay: 25 * time.Millisecond, MaxDelay: 500 * time.Millisecond}

// RetryOnConflict runs fn and retries it with exponential backoff while it
// fails with SQLITE_BUSY or "database is locked". Other errors return at once.
func RetryOnConflict(ctx context.Context, op string, fn func() error) error {
	return DefaultRetryPolicy.Do(ctx, op, fn)
}

// Do is RetryOnConflict with an explicit policy.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Delay),
		retry.MaxDelay(p.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsSQLiteConflictError),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Debug("database busy, retrying", "op", op, "attempt", n+1, "error", err)
		}),
	)
}
