package ports

import (
	"context"
	"time"
)

// Store interface for token invalidation and single-use challenges
type Store interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)

	// ConsumeOnce records id and reports true only for the first caller within ttl
	ConsumeOnce(ctx context.Context, id string, ttl time.Duration) (bool, error)
}
