// Package rpcprovider exposes a JSON-RPC endpoint as a provider candidate.
package rpcprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/layer-3/embedwallet/core"
)

// Caller is the subset of *rpc.Client the provider uses.
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Provider forwards requests to a JSON-RPC endpoint.
type Provider struct {
	client Caller
	info   core.ProviderInfo
	closer func()
}

// New wraps an existing client.
func New(client Caller, info core.ProviderInfo) *Provider {
	return &Provider{client: client, info: info}
}

// Dial connects to url and returns a Provider for it.
func Dial(ctx context.Context, url string, info core.ProviderInfo) (*Provider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	p := New(client, info)
	p.closer = client.Close
	return p, nil
}

func (p *Provider) Info() core.ProviderInfo {
	return p.info
}

// Request calls args.Method with args.Params as positional arguments.
// Errors carrying a JSON-RPC code are returned as *core.ProviderError.
func (p *Provider) Request(ctx context.Context, args core.RequestArguments) (json.RawMessage, error) {
	var result json.RawMessage
	if err := p.client.CallContext(ctx, &result, args.Method, positional(args.Params)...); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return nil, &core.ProviderError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		}
		return nil, err
	}
	return result, nil
}

// Close closes a client opened by Dial.
func (p *Provider) Close() {
	if p.closer != nil {
		p.closer()
	}
}

func positional(params any) []interface{} {
	switch v := params.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []interface{}{v}
	}
}
