// Package retry runs remote calls with a bounded exponential backoff for
// transient failures (HTTP 429 and 5xx).
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	// DefaultMaxAttempts is the number of attempts made when a Policy leaves MaxAttempts unset.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the delay before the first retry.
	DefaultBaseDelay = time.Second
	// DefaultMaxDelay caps every delay on the ladder.
	DefaultMaxDelay = 10 * time.Second
)

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// RateLimiter is implemented by errors that know they were caused by rate limiting
// even when no status code is available.
type RateLimiter interface {
	RateLimited() bool
}

// Policy describes how many times an operation is attempted and how long to wait between attempts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Sleep       Sleeper
}

// DefaultPolicy returns the 3-attempt, 1s/2s/4s… capped at 10s policy backed by a real timer.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Sleep:       TimerSleep,
	}
}

// TimerSleep waits on a real timer and returns early with ctx.Err() on cancellation.
func TimerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Delay returns the wait before retry number attempt (0-indexed):
// min(BaseDelay * 2^attempt, MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	base, ceiling := p.BaseDelay, p.MaxDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if ceiling <= 0 {
		ceiling = DefaultMaxDelay
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

// Do calls op until it succeeds, fails with a non-retryable error, or the policy
// runs out of attempts. The last error is returned unchanged in the latter two cases.
// If the context is cancelled while waiting, the last error is joined with ctx.Err().
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = TimerSleep
	}

	var zero T
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !Retryable(err) || attempt >= attempts-1 {
			return zero, err
		}
		if serr := sleep(ctx, p.Delay(attempt)); serr != nil {
			return zero, errors.Join(err, serr)
		}
	}
}

// Retryable reports whether err signals a transient remote failure.
func Retryable(err error) bool {
	status, ok := StatusOf(err)
	if !ok {
		return false
	}
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

// StatusOf extracts the classification status from err. A rate-limit marker
// without an explicit status counts as 429.
func StatusOf(err error) (int, bool) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code != 0 {
			return code, true
		}
	}
	var rl RateLimiter
	if errors.As(err, &rl) && rl.RateLimited() {
		return http.StatusTooManyRequests, true
	}
	return 0, false
}
