// Package providertest has fabricated providers for tests.
package providertest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/layer-3/embedwallet/core"
)

// HandlerFunc answers a single request.
type HandlerFunc func(ctx context.Context, method string, params any) (any, error)

// Fake is a provider with the current request surface.
type Fake struct {
	ProviderInfo core.ProviderInfo
	Handler      HandlerFunc

	mu    sync.Mutex
	calls []string
}

// New returns a Fake with the given name and flags.
func New(name string, flags ...string) *Fake {
	f := &Fake{ProviderInfo: core.ProviderInfo{Name: name, Flags: map[string]bool{}}}
	for _, fl := range flags {
		f.ProviderInfo.Flags[fl] = true
	}
	return f
}

func (f *Fake) Info() core.ProviderInfo {
	return f.ProviderInfo
}

func (f *Fake) Request(ctx context.Context, args core.RequestArguments) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, args.Method)
	h := f.Handler
	f.mu.Unlock()

	if h == nil {
		return nil, &core.ProviderError{Code: 4200, Message: "unsupported method " + args.Method}
	}
	v, err := h(ctx, args.Method, args.Params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Calls returns the methods requested so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Legacy is a provider that only offers the positional call form.
type Legacy struct {
	ProviderInfo core.ProviderInfo
	Handler      func(ctx context.Context, method string, params []any) (any, error)
}

func (l *Legacy) Info() core.ProviderInfo {
	return l.ProviderInfo
}

func (l *Legacy) Send(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	v, err := l.Handler(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Inert declares flags but cannot be called.
type Inert struct {
	ProviderInfo core.ProviderInfo
}

func (i *Inert) Info() core.ProviderInfo {
	return i.ProviderInfo
}

// Multi is an injected global exposing a providers array.
type Multi struct {
	*Fake
	List []core.Candidate
}

func (m *Multi) Providers() []core.Candidate {
	return m.List
}

// SDK is a host SDK stub.
type SDK struct {
	SignInEnabled bool
	LastNonce     string
}

func (s *SDK) CanSignIn() bool {
	return s.SignInEnabled
}

func (s *SDK) SignIn(_ context.Context, opts core.SignInOptions) (core.SignInResult, error) {
	s.LastNonce = opts.Nonce
	return core.SignInResult{Message: "nonce:" + opts.Nonce, Signature: "0x"}, nil
}
