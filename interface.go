package embedwallet

import (
	"context"
	"time"

	"github.com/layer-3/embedwallet/core"
)

// Challenge is a server-issued verification challenge
type Challenge struct {
	Token string
	Nonce string
}

// Tokens are the credentials returned by login and refresh
type Tokens struct {
	Access    string
	Refresh   string
	ExpiresIn time.Duration
}

// Client represents the public interface for interacting with the session service
type Client interface {
	// Challenge asks for a challenge bound to address and chainID
	Challenge(ctx context.Context, address string, chainID uint64) (Challenge, error)

	// Login exchanges a verification result for tokens
	Login(ctx context.Context, challenge Challenge, proof core.VerificationResult) (Tokens, error)

	// Refresh rotates the refresh token and returns new tokens
	Refresh(ctx context.Context, refresh string) (Tokens, error)

	// Logout invalidates the refresh token and its access tokens
	Logout(ctx context.Context, refresh string) error

	// Me returns the address and chain behind an access token
	Me(ctx context.Context, access string) (address string, chainID uint64, err error)
}
