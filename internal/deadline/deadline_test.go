package deadline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/embedwallet/core"
)

type fakeTimer struct {
	ch      chan time.Time
	stopped atomic.Int32
}

func (f *fakeTimer) C() <-chan time.Time { return f.ch }
func (f *fakeTimer) Stop() bool {
	f.stopped.Add(1)
	return true
}

func TestDoReturnsResultBeforeDeadline(t *testing.T) {
	ft := &fakeTimer{ch: make(chan time.Time)}
	v, err := do(context.Background(), time.Second, "eth_chainId", func(context.Context) (string, error) {
		return "0x1", nil
	}, func(time.Duration) timer { return ft })

	require.NoError(t, err)
	assert.Equal(t, "0x1", v)
	assert.Equal(t, int32(1), ft.stopped.Load())
}

func TestDoPropagatesOperationError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Do(context.Background(), time.Second, "op", func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDoTimesOut(t *testing.T) {
	ft := &fakeTimer{ch: make(chan time.Time, 1)}
	ft.ch <- time.Now()

	release := make(chan struct{})
	defer close(release)

	_, err := do(context.Background(), 30*time.Second, "personal_sign", func(ctx context.Context) (string, error) {
		<-release
		return "late", nil
	}, func(time.Duration) timer { return ft })

	require.ErrorIs(t, err, core.ErrDeadlineExceeded)
	var de *core.DeadlineError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "personal_sign", de.Label)
	assert.Equal(t, 30*time.Second, de.Timeout)
	assert.Equal(t, int32(1), ft.stopped.Load())
}

func TestDoCancelsOperationContextAfterTimeout(t *testing.T) {
	cancelled := make(chan struct{})
	_, err := Do(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, core.ErrDeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("operation context was not cancelled")
	}
}

func TestDoHonoursCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, time.Minute, "op", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoRejectsNonPositiveDuration(t *testing.T) {
	called := false
	_, err := Do(context.Background(), 0, "op", func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, core.ErrDeadlineExceeded)
	assert.False(t, called)
}
