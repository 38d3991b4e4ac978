package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestPublishEvents(t *testing.T) {
	ps := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	verified, err := ps.Subscribe(ctx, TopicVerified)
	require.NoError(t, err)
	logout, err := ps.Subscribe(ctx, TopicLogout)
	require.NoError(t, err)

	pub := NewWatermillPublisher(ps)

	require.NoError(t, pub.PublishVerified(ctx, "0xabc", 8453, "sess-1"))
	msg := receive(t, verified)
	assert.Equal(t, "sess-1", msg.UUID)
	var ve VerifiedEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &ve))
	assert.Equal(t, VerifiedEvent{Address: "0xabc", ChainID: 8453, SessionID: "sess-1"}, ve)

	require.NoError(t, pub.PublishLogout(ctx, "0xabc", "rt-1"))
	msg = receive(t, logout)
	var le LogoutEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &le))
	assert.Equal(t, LogoutEvent{Address: "0xabc", TokenID: "rt-1"}, le)
}

func TestPublishAfterClose(t *testing.T) {
	ps := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	require.NoError(t, ps.Close())

	err := NewWatermillPublisher(ps).PublishLogout(context.Background(), "0xabc", "")
	assert.Error(t, err)
}
