// Package retry bounds calls to external services with a per-attempt
// deadline and a small, fixed number of retries.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy describes how an external call is bounded.
type Policy struct {
	// Attempts is the number of retries after the first try. Zero or a
	// negative value means the call is made exactly once.
	Attempts int
	// Timeout is applied to every attempt. Zero disables the per-attempt deadline.
	Timeout time.Duration
	// Backoff is the pause between attempts.
	Backoff time.Duration
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
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

// Do runs fn until it succeeds, returns a permanent error, the parent context
// is done, or the attempts are exhausted. The last error is returned with any
// Permanent marker stripped.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= max(p.Attempts, 0); attempt++ {
		if attempt > 0 && p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff):
			}
		}

		err = p.once(ctx, fn)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (p Policy) once(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(attemptCtx)
}
