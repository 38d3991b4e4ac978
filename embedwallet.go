// Package embedwallet finds the wallet provider injected by an embedding mini-app
// host, refuses browser-extension providers, and proves that the connected account
// is controlled by the session.
//
// Provider selection is a convenience filter over self-declared flags. The signature
// recovery in VerifyWallet is the check that matters.
package embedwallet

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/dispatch"
	"github.com/layer-3/embedwallet/hostsdk"
	"github.com/layer-3/embedwallet/ports"
	"github.com/layer-3/embedwallet/provider"
	"github.com/layer-3/embedwallet/verify"
)

type options struct {
	logger         watermill.LoggerAdapter
	announcer      ports.Announcer
	announceWindow time.Duration
	requestTimeout time.Duration
}

// Option configures a Kit.
type Option func(*options)

// WithLogger sets the logger used by every component.
func WithLogger(l watermill.LoggerAdapter) Option {
	return func(o *options) { o.logger = l }
}

// WithAnnouncer enables request/announce discovery.
func WithAnnouncer(a ports.Announcer) Option {
	return func(o *options) { o.announcer = a }
}

// WithAnnounceWindow bounds how long announcements are collected.
func WithAnnounceWindow(d time.Duration) Option {
	return func(o *options) { o.announceWindow = d }
}

// WithRequestTimeout sets the deadline for every provider request.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// Kit ties discovery, the tripwire and verification to one environment.
type Kit struct {
	env       ports.Environment
	discovery *provider.Discovery
	tripwire  *provider.Tripwire
	verifier  *verify.Verifier
	bridgeOpt []provider.BridgeOption
	logger    watermill.LoggerAdapter

	mu     sync.Mutex
	bridge *provider.Bridge
}

// New creates a Kit for env.
func New(env ports.Environment, opts ...Option) *Kit {
	o := options{logger: watermill.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = watermill.NopLogger{}
	}

	dopts := []provider.Option{provider.WithLogger(o.logger)}
	if o.announcer != nil {
		dopts = append(dopts, provider.WithAnnouncer(o.announcer))
	}
	if o.announceWindow > 0 {
		dopts = append(dopts, provider.WithAnnounceWindow(o.announceWindow))
	}
	bopts := []provider.BridgeOption{provider.WithBridgeLogger(o.logger)}
	if o.requestTimeout > 0 {
		bopts = append(bopts, provider.WithRequestTimeout(o.requestTimeout))
	}

	d := provider.NewDiscovery(env, dopts...)
	return &Kit{
		env:       env,
		discovery: d,
		tripwire:  d.Tripwire(),
		verifier:  verify.NewVerifier(o.logger),
		bridgeOpt: bopts,
		logger:    o.logger,
	}
}

// GetEmbeddedProvider returns a bridge to the selected embedded provider. The first
// successful selection is reused until Reselect is called; failures are not cached.
func (k *Kit) GetEmbeddedProvider(ctx context.Context) (*provider.Bridge, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.bridge != nil {
		return k.bridge, nil
	}
	sel, err := k.discovery.Discover(ctx)
	if err != nil {
		return nil, err
	}
	b, err := provider.NewBridge(sel, k.bridgeOpt...)
	if err != nil {
		return nil, err
	}
	k.logger.Info("Embedded provider selected", watermill.LogFields{"name": sel.Name(), "tagged": sel.Tagged()})
	k.bridge = b
	return b, nil
}

// Reselect drops the cached selection and any sanctioned-exception tag.
func (k *Kit) Reselect() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.bridge = nil
	k.discovery.Tags().Reset()
}

// AssertNoExtensionProvider fails with core.ErrExtensionBlocked when the live injected
// provider is an extension outside a trusted host and was not selected as the
// sanctioned exception. Call it before every state-changing wallet call.
func (k *Kit) AssertNoExtensionProvider() error {
	return k.tripwire.AssertNoExtensionProvider()
}

// VerifyWallet proves control of the account behind handle. A nil handle uses
// the embedded provider.
func (k *Kit) VerifyWallet(ctx context.Context, handle verify.Requester, opts ...verify.Option) (*core.VerificationResult, error) {
	if handle == nil {
		b, err := k.GetEmbeddedProvider(ctx)
		if err != nil {
			return nil, err
		}
		handle = b
	}
	return k.verifier.Verify(ctx, handle, opts...)
}

// Dispatcher returns a transaction dispatcher for a verified wallet on the embedded provider.
func (k *Kit) Dispatcher(ctx context.Context, verified *core.VerificationResult) (*dispatch.Dispatcher, error) {
	b, err := k.GetEmbeddedProvider(ctx)
	if err != nil {
		return nil, err
	}
	return dispatch.NewDispatcher(b, k.tripwire, verified, k.logger)
}

// HostSDK returns the host SDK with nonce normalisation applied, or nil.
func (k *Kit) HostSDK() core.HostSDK {
	if k.env == nil {
		return nil
	}
	return hostsdk.WithNonceGuard(k.env.HostSDK())
}
