package payu

import (
	"context"
	"net/http"
	"time"
)

// RetryPolicy decides which failures are worth retrying and how long to
// wait between attempts. Kept as an explicit object so the schedule is
// testable without an HTTP server.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
	// MaxBackoff caps the doubling.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy matches the documented defaults: two retries with
// exponential backoff starting at 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Backoff:    200 * time.Millisecond,
		MaxBackoff: 2 * time.Second,
	}
}

// Retryable reports whether an attempt that ended with the given status
// (0 for transport errors) should be retried. Server-side failures and
// transport errors are transient; client errors are not — a malformed
// request stays malformed.
func (p RetryPolicy) Retryable(status int, err error) bool {
	if err != nil && status == 0 {
		return true
	}
	return status >= http.StatusInternalServerError
}

// Delay returns the backoff before retry attempt n (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.Backoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// wait sleeps for the attempt's backoff, honoring ctx cancellation.
func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Delay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
