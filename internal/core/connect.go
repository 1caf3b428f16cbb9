// AngelaMos | 2026
// connect.go

package core

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	connectBaseDelay = 500 * time.Millisecond
	connectMaxDelay  = 8 * time.Second
	pingTimeout      = 5 * time.Second
)

// connectWithRetry calls dial up to attempts times, backing off
// exponentially with jitter. Postgres and Redis often come up after the
// API in compose setups.
func connectWithRetry(
	ctx context.Context,
	name string,
	attempts int,
	dial func(ctx context.Context) error,
) error {
	if attempts < 1 {
		attempts = 1
	}

	delay := connectBaseDelay
	var err error
	for i := 1; i <= attempts; i++ {
		if err = dial(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		slog.Warn("dependency not reachable yet",
			"dependency", name,
			"attempt", i,
			"retry_in", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("connect %s: %w", name, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, connectMaxDelay)
	}

	return fmt.Errorf("connect %s after %d attempts: %w", name, attempts, err)
}

func jitteredDuration(base time.Duration) time.Duration {
	if base <= 0 {
		return base
	}
	//nolint:gosec // G404: pool lifetime jitter, not security sensitive
	return base + time.Duration(rand.Int64N(int64(base/7)+1))
}
