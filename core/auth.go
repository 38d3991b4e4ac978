package core

import "time"

// Challenge represents a server issued wallet verification challenge
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Ethereum address of the user
	ChainID   uint64    // Chain the proof must be bound to
	Nonce     string    // Random nonce embedded in the signed message
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Session represents an authenticated user session
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Ethereum address of the user
	ChainID       uint64    // Chain the wallet was verified on
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}
