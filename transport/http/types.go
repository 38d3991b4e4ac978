package http

import "github.com/layer-3/embedwallet/core"

// ChallengeRequest asks for a verification challenge
type ChallengeRequest struct {
	Address string `json:"address" binding:"required"`
	ChainID uint64 `json:"chain_id" binding:"required"`
}

// ChallengeResponse carries the challenge token and the nonce to bind into the proof
type ChallengeResponse struct {
	Token string `json:"token"`
	Nonce string `json:"nonce"`
}

// LoginRequest submits a client verification result against a challenge
type LoginRequest struct {
	ChallengeToken string      `json:"challenge_token" binding:"required"`
	Address        string      `json:"address" binding:"required"`
	ChainID        uint64      `json:"chain_id" binding:"required"`
	Signature      string      `json:"signature" binding:"required"`
	Timestamp      int64       `json:"timestamp" binding:"required"`
	Method         core.Method `json:"method" binding:"required,oneof=personal_sign typed_data"`
	Nonce          string      `json:"nonce"`
}

// Proof converts the request to a verification result
func (r LoginRequest) Proof() core.VerificationResult {
	return core.VerificationResult{
		Address:   r.Address,
		ChainID:   r.ChainID,
		Signature: r.Signature,
		Timestamp: r.Timestamp,
		Method:    r.Method,
		Nonce:     r.Nonce,
	}
}

// RefreshRequest carries a refresh token for refresh and logout
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// MeResponse describes the authenticated wallet
type MeResponse struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}
