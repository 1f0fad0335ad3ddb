// Package retry provides a bounded fixed-backoff retry policy.
package retry

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrExhausted is returned when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes how an operation is retried.
type Policy struct {
	MaxAttempts int           // Total attempts including the first one (minimum 1)
	Backoff     time.Duration // Fixed delay between attempts

	// OnRetry is called after a failed attempt when another attempt will follow.
	OnRetry func(attempt int, err error)

	// Wait blocks for d or until ctx is done. Defaults to a timer wait.
	Wait func(ctx context.Context, d time.Duration) error
}

// Op is one attempt of a retried operation. attempt starts at 1.
type Op func(ctx context.Context, attempt int) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs op until it succeeds, the attempts are used up, op returns a
// permanent error, or ctx is cancelled.
func Do(ctx context.Context, p Policy, op Op) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	wait := p.Wait
	if wait == nil {
		wait = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if err := wait(ctx, p.Backoff); err != nil {
			return err
		}
	}

	return errors.Mark(errors.Wrapf(lastErr, "failed after %d attempts", attempts), ErrExhausted)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
