// Package announce implements the request/announce provider discovery handshake
// over an in-process watermill pub/sub.
package announce

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/layer-3/embedwallet/core"
)

const (
	TopicRequestProvider  = "eip6963:requestProvider"
	TopicAnnounceProvider = "eip6963:announceProvider"
)

// Announcement is the payload carried on the announce topic.
type Announcement struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	RDNS string `json:"rdns"`
}

// Bus lets providers announce themselves and lets discovery collect them.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter

	mu        sync.RWMutex
	providers map[string]core.Candidate
}

// NewBus creates a Bus. Close releases the underlying pub/sub.
func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub:    gochannel.NewGoChannel(gochannel.Config{}, logger),
		logger:    logger,
		providers: make(map[string]core.Candidate),
	}
}

// Register makes c answer discovery requests until ctx is done or the returned
// function is called. A provider without a UUID is given one.
func (b *Bus) Register(ctx context.Context, c core.Candidate) (func(), error) {
	if c == nil {
		return nil, fmt.Errorf("announce: nil provider")
	}
	id := c.Info().UUID
	if id == "" {
		id = watermill.NewUUID()
	}

	ctx, cancel := context.WithCancel(ctx)
	requests, err := b.pubsub.Subscribe(ctx, TopicRequestProvider)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", TopicRequestProvider, err)
	}

	b.mu.Lock()
	b.providers[id] = c
	b.mu.Unlock()

	go func() {
		for msg := range requests {
			msg.Ack()
			if err := b.announce(id, c); err != nil {
				b.logger.Error("Failed to announce provider", err, watermill.LogFields{"uuid": id})
			}
		}
	}()

	if err := b.announce(id, c); err != nil {
		b.logger.Error("Failed to announce provider", err, watermill.LogFields{"uuid": id})
	}

	return func() {
		cancel()
		b.mu.Lock()
		delete(b.providers, id)
		b.mu.Unlock()
	}, nil
}

func (b *Bus) announce(id string, c core.Candidate) error {
	info := c.Info()
	payload, err := json.Marshal(Announcement{UUID: id, Name: info.Name, RDNS: info.RDNS})
	if err != nil {
		return fmt.Errorf("failed to marshal announcement: %w", err)
	}
	return b.pubsub.Publish(TopicAnnounceProvider, message.NewMessage(watermill.NewUUID(), payload))
}

func (b *Bus) lookup(id string) core.Candidate {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.providers[id]
}

// Discover broadcasts a request and collects distinct announcements until window
// elapses or ctx is done. Announcements for providers that have since unregistered
// are ignored.
func (b *Bus) Discover(ctx context.Context, window time.Duration) ([]core.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	announcements, err := b.pubsub.Subscribe(ctx, TopicAnnounceProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", TopicAnnounceProvider, err)
	}

	req := message.NewMessage(watermill.NewUUID(), nil)
	if err := b.pubsub.Publish(TopicRequestProvider, req); err != nil {
		return nil, fmt.Errorf("failed to request providers: %w", err)
	}

	var found []core.Candidate
	seen := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return found, nil
		case msg, ok := <-announcements:
			if !ok {
				return found, nil
			}
			msg.Ack()

			var a Announcement
			if err := json.Unmarshal(msg.Payload, &a); err != nil {
				b.logger.Debug("Ignoring malformed announcement", watermill.LogFields{"error": err.Error()})
				continue
			}
			if seen[a.UUID] {
				continue
			}
			c := b.lookup(a.UUID)
			if c == nil {
				continue
			}
			seen[a.UUID] = true
			found = append(found, c)
		}
	}
}

// Close shuts down the bus.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
