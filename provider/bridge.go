package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/internal/deadline"
)

// DefaultRequestTimeout bounds every call made through a Bridge.
const DefaultRequestTimeout = 30 * time.Second

// Bridge adapts the selected provider to a single Request call. Every call goes
// through the timeout guard and is logged before dispatch and after completion.
// Errors, including timeouts, are returned as-is; nothing is retried.
type Bridge struct {
	sel     *Selection
	timeout time.Duration
	logger  watermill.LoggerAdapter
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBridgeLogger sets the logger.
func WithBridgeLogger(l watermill.LoggerAdapter) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBridge builds a Bridge over a completed selection.
func NewBridge(sel *Selection, opts ...BridgeOption) (*Bridge, error) {
	if sel == nil || !usable(sel.candidate) {
		return nil, core.ErrNoProviderFound
	}
	b := &Bridge{
		sel:     sel,
		timeout: DefaultRequestTimeout,
		logger:  watermill.NopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Selection returns the selection the bridge was built from.
func (b *Bridge) Selection() *Selection {
	return b.sel
}

// Request sends method with params to the selected provider.
func (b *Bridge) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	fields := watermill.LogFields{"provider": b.sel.Name(), "method": method, "params": params}
	b.logger.Debug("Provider request", fields)

	res, err := deadline.Do(ctx, b.timeout, method, func(ctx context.Context) (json.RawMessage, error) {
		return b.dispatch(ctx, method, params)
	})
	if err != nil {
		b.logger.Error("Provider request failed", err, fields)
		return nil, err
	}

	b.logger.Debug("Provider response", fields.Add(watermill.LogFields{"result": string(res)}))
	return res, nil
}

// dispatch prefers the current request form and falls back to the positional one.
func (b *Bridge) dispatch(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c := b.sel.candidate
	if r, ok := c.(core.Requester); ok {
		res, err := r.Request(ctx, core.RequestArguments{Method: method, Params: params})
		if !errors.Is(err, core.ErrUnsupportedCall) {
			return res, err
		}
	}
	if l, ok := c.(core.LegacyRequester); ok {
		return l.Send(ctx, method, positional(params))
	}
	return nil, fmt.Errorf("%s: %w", method, core.ErrUnsupportedCall)
}

func positional(params any) []any {
	switch p := params.(type) {
	case nil:
		return nil
	case []any:
		return p
	case []string:
		out := make([]any, len(p))
		for i, s := range p {
			out[i] = s
		}
		return out
	default:
		return []any{p}
	}
}
