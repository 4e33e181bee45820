// Package retry provides a bounded retry combinator for transient failures.
package retry

import (
	"log/slog"
	"time"

	"github.com/loykin/logparsely/internal/metrics"
)

// Do runs fn up to maxAttempts times, sleeping delay between attempts.
// Each failed attempt is logged. The last error is returned when all
// attempts fail; nil as soon as one attempt succeeds.
func Do(op string, maxAttempts int, delay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		metrics.IncRetry(op)
		slog.Warn("operation attempt failed", "op", op, "attempt", attempt, "max_attempts", maxAttempts, "error", err)
		if attempt < maxAttempts {
			time.Sleep(delay)
		}
	}
	return err
}
