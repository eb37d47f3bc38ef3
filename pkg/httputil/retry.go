package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// RetryableError marks a transient failure. After, when set, is the delay
// the server asked for before the next attempt.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is marked transient anywhere in its chain.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// retryAfter parses a Retry-After header given in seconds. HTTP dates are
// ignored.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Backoff configures [Retry].
type Backoff struct {
	Attempts int           // total attempts, at least 1
	Delay    time.Duration // delay before the second attempt, doubled afterwards
	MaxDelay time.Duration // cap on any single delay; 0 means no cap
}

// DefaultBackoff makes 3 attempts starting at 1s and never sleeps longer
// than a minute, even if the server asks for more.
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second, MaxDelay: time.Minute}

func (b Backoff) wait(attempt int, err error) time.Duration {
	d := b.Delay << attempt
	if re := (*RetryableError)(nil); errors.As(err, &re) && re.After > d {
		d = re.After
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	return d
}

// Retry calls fn until it succeeds, fails with an error not marked
// [Retryable], or b.Attempts calls have been made. It returns fn's last
// error, or ctx.Err() when ctx ends during a wait.
func Retry(ctx context.Context, b Backoff, fn func() error) error {
	attempts := max(b.Attempts, 1)
	for i := 0; ; i++ {
		err := fn()
		if err == nil || !IsRetryable(err) || i == attempts-1 {
			return err
		}

		timer := time.NewTimer(b.wait(i, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
