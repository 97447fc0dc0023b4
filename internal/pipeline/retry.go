package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docmark/internal/analyze"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *analyze.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// AttemptTimeout scales the per-call deadline with the attempt number,
// so a chunk that timed out gets more room before it is given up on.
func AttemptTimeout(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt+1)
}

const MaxRetries = 3
