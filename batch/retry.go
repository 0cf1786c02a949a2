package batch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by WithTimeout when the deadline fires first.
var ErrTimeout = errors.New("timed out")

// RetryOptions configures Retry.
type RetryOptions struct {
	MaxRetries int           // attempts beyond the first one
	Delay      time.Duration // wait before the first retry
	Backoff    bool          // double the wait after every attempt
}

// DefaultRetry is three retries, starting at one second with exponential backoff.
var DefaultRetry = RetryOptions{MaxRetries: 3, Delay: time.Second, Backoff: true}

// Retry calls fn until it succeeds, at most opts.MaxRetries+1 times. When all
// attempts fail, the error of the last one is returned unchanged. A cancelled
// ctx interrupts the wait between attempts and returns ctx.Err().
func Retry[R any](ctx context.Context, fn func(context.Context) (R, error), opts RetryOptions) (R, error) {
	var (
		res R
		err error
	)
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		res, err = fn(ctx)
		if err == nil {
			return res, nil
		}
		if attempt == opts.MaxRetries {
			break
		}
		wait := opts.Delay
		if opts.Backoff {
			wait = opts.Delay << attempt
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(wait):
		}
	}
	return res, err
}

// WithTimeout runs fn with a context cancelled after d. If the deadline is
// reached before fn returns, the result is ErrTimeout. fn must honour its
// context so that whatever it holds is released on timeout.
func WithTimeout[R any](ctx context.Context, d time.Duration, fn func(context.Context) (R, error)) (R, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		res R
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := fn(ctx)
		done <- outcome{r, err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return o.res, fmt.Errorf("%w after %v: %w", ErrTimeout, d, o.err)
		}
		return o.res, o.err
	case <-ctx.Done():
		var zero R
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %v: %w", ErrTimeout, d, ctx.Err())
		}
		return zero, ctx.Err()
	}
}
