// Package bulkhead runs one branch of a fan-out so that a slow or panicking
// branch cannot take the others down.
package bulkhead

import (
	"context"
	"fmt"
	"time"
)

// Run calls fn with a context bounded by timeout. When the deadline passes
// first, Run returns the zero value and the context error without waiting
// for fn. A panic in fn is returned as an error.
func Run[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("bulkhead: panic: %v", rec)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return zero, r.err
		}
		return r.v, nil
	case <-ctx.Done():
		return zero, fmt.Errorf("bulkhead: %w", ctx.Err())
	}
}
