package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	ErrNoProviderFound  = errors.New("no embedded provider found")
	ErrExtensionBlocked = errors.New("extension provider blocked outside trusted host")
	ErrNoActiveAccount  = errors.New("no active account")
	ErrSigningFailed    = errors.New("signing failed")
	ErrAddressMismatch  = errors.New("recovered address does not match account")

	ErrUnsupportedCall = errors.New("provider call form not supported")
	ErrUserRejected    = errors.New("user rejected the request")

	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrChallengeUsed    = errors.New("challenge already used")
	ErrStaleProof       = errors.New("proof timestamp outside challenge window")
)

// DeadlineError is returned by the timeout guard when an operation outlives its deadline.
type DeadlineError struct {
	Label   string
	Timeout time.Duration
}

func (e *DeadlineError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Label, e.Timeout)
}

// Is reports ErrDeadlineExceeded as a match.
func (e *DeadlineError) Is(target error) bool {
	return target == ErrDeadlineExceeded
}

// SigningError carries the signing method that failed and the underlying reason.
type SigningError struct {
	Method Method
	Err    error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSigningFailed, e.Method, e.Err)
}

func (e *SigningError) Is(target error) bool {
	return target == ErrSigningFailed
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// ProviderError is an EIP-1193 style error reported by a provider.
type ProviderError struct {
	Code    int
	Message string
}

// CodeUserRejected is the EIP-1193 code for a request the user declined.
const CodeUserRejected = 4001

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrUserRejected && e.Code == CodeUserRejected
}
