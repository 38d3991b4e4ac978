package ports

import "context"

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishVerified(ctx context.Context, address string, chainID uint64, sessionID string) error
	PublishLogout(ctx context.Context, address string, tokenID string) error
}
