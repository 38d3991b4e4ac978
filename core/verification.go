package core

import (
	"strings"
	"time"
)

// Method identifies which signing path produced a proof.
type Method string

const (
	MethodPersonalSign Method = "personal_sign"
	MethodTypedData    Method = "typed_data"
)

// State is a step of a single verification attempt.
type State int

const (
	StateStart State = iota
	StateHaveChainAndAccount
	StateSignedPlain
	StateSignedTyped
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateHaveChainAndAccount:
		return "have_chain_and_account"
	case StateSignedPlain:
		return "signed_plain"
	case StateSignedTyped:
		return "signed_typed"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// VerificationChallenge is generated per attempt and discarded after use.
type VerificationChallenge struct {
	Address   string
	ChainID   uint64
	Timestamp int64 // unix milliseconds
	Nonce     string
}

// VerificationResult is the proof that Address controls the connected session.
// Address always equals the signer recovered from Signature.
type VerificationResult struct {
	Address   string
	ChainID   uint64
	Signature string
	Timestamp int64
	Method    Method
	Nonce     string
}

// SameAddress compares two hex addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// TimestampTime converts a challenge timestamp to time.Time.
func (c VerificationChallenge) TimestampTime() time.Time {
	return time.UnixMilli(c.Timestamp)
}
