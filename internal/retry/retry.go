// Package retry bounds calls to external services with a per-attempt
// timeout and a small number of retries on transient failures.
package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Policy configures Do. The zero value makes one attempt with no timeout.
type Policy struct {
	Timeout time.Duration // per attempt; 0 means no extra deadline
	Retries int           // additional attempts after the first
	Delay   time.Duration // wait between attempts
}

// Classifier reports whether an error is worth retrying.
type Classifier func(error) bool

// Do calls fn until it succeeds, returns a non-transient error, or the
// retries are used up. Each attempt gets its own deadline derived from ctx.
// Cancellation of ctx itself is never retried.
func (p Policy) Do(ctx context.Context, transient Classifier, fn func(ctx context.Context) error) error {
	delay := p.Delay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	retries := p.Retries
	if retries < 0 {
		retries = 0
	}
	backoff := goretry.WithMaxRetries(uint64(retries), goretry.NewConstant(delay))

	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		defer cancel()

		err := fn(attemptCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if IsNetworkError(err) || (transient != nil && transient(err)) {
			return goretry.RetryableError(err)
		}
		return err
	})
}

// IsNetworkError reports transport-level failures: connection errors,
// truncated responses and attempt timeouts.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsRetryableStatus reports HTTP statuses that usually clear up on retry.
func IsRetryableStatus(code int) bool {
	return code == 429 || code == 502 || code == 503 || code == 504 || code == 500
}
