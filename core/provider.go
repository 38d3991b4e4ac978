package core

import (
	"context"
	"encoding/json"
)

// ProviderInfo is what a provider declares about itself. Nothing in it is authenticated.
type ProviderInfo struct {
	UUID  string
	Name  string
	RDNS  string
	Flags map[string]bool
}

// Flag reports a self-declared flag, treating a missing map or key as false.
func (i ProviderInfo) Flag(name string) bool {
	if i.Flags == nil {
		return false
	}
	return i.Flags[name]
}

// Candidate is an opaque provider handle found in the host context.
// A candidate is only usable if it also implements Requester or LegacyRequester.
type Candidate interface {
	Info() ProviderInfo
}

// RequestArguments is the EIP-1193 request shape.
type RequestArguments struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Requester is the current request surface.
type Requester interface {
	Request(ctx context.Context, args RequestArguments) (json.RawMessage, error)
}

// LegacyRequester is the older positional call form still exposed by some host bridges.
type LegacyRequester interface {
	Send(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// MultiProvider is implemented by an injected global that carries several providers.
type MultiProvider interface {
	Providers() []Candidate
}

// SignInOptions are passed to the host SDK sign-in action.
type SignInOptions struct {
	Nonce          string
	AcceptAuthAddr bool
}

// SignInResult is returned by the host SDK sign-in action.
type SignInResult struct {
	Message   string
	Signature string
}

// HostSDK is the embedding container's SDK, when present.
type HostSDK interface {
	CanSignIn() bool
	SignIn(ctx context.Context, opts SignInOptions) (SignInResult, error)
}

// HasRequestSurface reports whether c can actually be called.
func HasRequestSurface(c Candidate) bool {
	if c == nil {
		return false
	}
	switch c.(type) {
	case Requester, LegacyRequester:
		return true
	}
	return false
}
