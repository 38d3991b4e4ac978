package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ChallengeClaims combines standard claims with challenge-specific ones
type ChallengeClaims struct {
	jwt.RegisteredClaims
	Nonce   string `json:"nonce"`
	ChainID uint64 `json:"chain_id"`
}

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID string `json:"rid"` // ID of the refresh token
	ChainID   uint64 `json:"chain_id"`
}

// RefreshClaims carry the chain alongside the standard claims so refresh keeps it
type RefreshClaims struct {
	jwt.RegisteredClaims
	ChainID uint64 `json:"chain_id"`
}
