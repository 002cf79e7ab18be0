package evaluate

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/chatrelay/internal/orchestrate"
)

// MaxAttempts is how many times a question is sent before giving up on a
// transient failure.
const MaxAttempts = 3

// IsRetryable reports whether err is a transient Orchestrate failure.
func IsRetryable(err error) bool {
	var retryErr *orchestrate.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns the wait before retry attempt n (0-indexed): exponential
// from one second, capped at 30s, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	base := min(time.Duration(1<<uint(attempt))*time.Second, 30*time.Second)
	return base + time.Duration(rand.Int64N(int64(base)/2))
}
