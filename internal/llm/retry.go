package llm

import (
	"context"

	"github.com/fenwicklabs/reactor/internal/backoff"
)

// SendWithRetry calls send under the standard backoff policy, retrying only
// when the failure is classified as retryable (rate limit, timeout, or
// server error) and returning immediately on any other kind of failure.
func SendWithRetry(ctx context.Context, maxAttempts int, send func(attempt int) (Reply, error)) (Reply, error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	policy := backoff.DefaultPolicy()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Reply{}, err
		}

		reply, err := send(attempt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt >= maxAttempts {
			return Reply{}, err
		}
		if sleepErr := backoff.SleepWithBackoff(ctx, policy, attempt); sleepErr != nil {
			return Reply{}, sleepErr
		}
	}
	return Reply{}, lastErr
}
