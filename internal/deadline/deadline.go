// Package deadline bounds a single blocking call with a timer.
package deadline

import (
	"context"
	"time"

	"github.com/layer-3/embedwallet/core"
)

// timer is the part of *time.Timer the guard relies on.
type timer interface {
	C() <-chan time.Time
	Stop() bool
}

type stdTimer struct{ t *time.Timer }

func (s stdTimer) C() <-chan time.Time { return s.t.C }
func (s stdTimer) Stop() bool          { return s.t.Stop() }

func newStdTimer(d time.Duration) timer { return stdTimer{t: time.NewTimer(d)} }

type result[T any] struct {
	val T
	err error
}

// Do runs fn and returns its outcome, or a *core.DeadlineError if d elapses first.
// The timer is stopped on every path. fn receives a context that is cancelled once Do returns,
// and cancelling ctx aborts the wait with ctx.Err(). No retries are attempted.
func Do[T any](ctx context.Context, d time.Duration, label string, fn func(context.Context) (T, error)) (T, error) {
	return do(ctx, d, label, fn, newStdTimer)
}

func do[T any](ctx context.Context, d time.Duration, label string, fn func(context.Context) (T, error), newTimer func(time.Duration) timer) (T, error) {
	var zero T
	if d <= 0 {
		return zero, &core.DeadlineError{Label: label, Timeout: d}
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := newTimer(d)
	defer t.Stop()

	// Buffered so a late result never blocks the worker goroutine.
	done := make(chan result[T], 1)
	go func() {
		v, err := fn(callCtx)
		done <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-t.C():
		return zero, &core.DeadlineError{Label: label, Timeout: d}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
