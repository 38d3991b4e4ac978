package announce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/internal/providertest"
)

func newBus(t *testing.T) *Bus {
	t.Helper()
	b := NewBus(nil)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestDiscoverCollectsRegistered(t *testing.T) {
	b := newBus(t)
	ctx := context.Background()

	a := providertest.New("Host Wallet", "isFarcasterEmbedded")
	a.ProviderInfo.UUID = "a"
	c := providertest.New("Other")
	c.ProviderInfo.UUID = "c"

	_, err := b.Register(ctx, a)
	require.NoError(t, err)
	_, err = b.Register(ctx, c)
	require.NoError(t, err)

	found, err := b.Discover(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.Candidate{a, c}, found)
}

func TestDiscoverEmpty(t *testing.T) {
	b := newBus(t)

	start := time.Now()
	found, err := b.Discover(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUnregisterStopsAnswering(t *testing.T) {
	b := newBus(t)
	p := providertest.New("Gone")

	unregister, err := b.Register(context.Background(), p)
	require.NoError(t, err)
	unregister()

	found, err := b.Discover(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDiscoverHonoursCallerContext(t *testing.T) {
	b := newBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	found, err := b.Discover(ctx, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRegisterNil(t *testing.T) {
	_, err := newBus(t).Register(context.Background(), nil)
	assert.Error(t, err)
}
