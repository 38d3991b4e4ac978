// Package keyprovider is a provider backed by a local private key, for development
// and tests. It answers the read and signing methods used by wallet verification.
package keyprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/internal/eth"
)

// CodeUnsupportedMethod is the EIP-1193 code for an unknown method.
const CodeUnsupportedMethod = 4200

// SendFunc handles eth_sendTransaction.
type SendFunc func(ctx context.Context, tx map[string]any) (string, error)

// Provider answers requests with a single key.
type Provider struct {
	signer   *eth.Signer
	chainID  uint64
	info     core.ProviderInfo
	accounts []string
	rejected map[string]bool
	send     SendFunc

	mu    sync.Mutex
	calls []string
}

// Option configures a Provider.
type Option func(*Provider)

// WithChainID sets the reported chain id.
func WithChainID(id uint64) Option {
	return func(p *Provider) { p.chainID = id }
}

// WithInfo sets the self-declared provider info.
func WithInfo(info core.ProviderInfo) Option {
	return func(p *Provider) { p.info = info }
}

// WithAccounts overrides the account list returned by eth_accounts.
// The key still signs, which lets tests model a provider lying about its account.
func WithAccounts(accounts ...string) Option {
	return func(p *Provider) { p.accounts = accounts }
}

// WithRejected makes the given methods fail with a user rejection.
func WithRejected(methods ...string) Option {
	return func(p *Provider) {
		for _, m := range methods {
			p.rejected[m] = true
		}
	}
}

// WithSend handles eth_sendTransaction.
func WithSend(fn SendFunc) Option {
	return func(p *Provider) { p.send = fn }
}

// New creates a Provider for signer.
func New(signer *eth.Signer, opts ...Option) *Provider {
	p := &Provider{
		signer:   signer,
		chainID:  1,
		info:     core.ProviderInfo{Name: "Local Key"},
		accounts: []string{signer.Address().Hex()},
		rejected: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Info() core.ProviderInfo {
	return p.info
}

// Calls returns the methods requested so far.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Provider) Request(ctx context.Context, args core.RequestArguments) (json.RawMessage, error) {
	p.mu.Lock()
	p.calls = append(p.calls, args.Method)
	p.mu.Unlock()

	if p.rejected[args.Method] {
		return nil, &core.ProviderError{Code: core.CodeUserRejected, Message: "User rejected the request."}
	}

	switch args.Method {
	case "eth_chainId":
		return json.Marshal(hexutil.EncodeUint64(p.chainID))
	case "eth_accounts", "eth_requestAccounts":
		return json.Marshal(p.accounts)
	case "personal_sign":
		params, err := stringParams(args.Params, 2)
		if err != nil {
			return nil, err
		}
		msg, err := parsePersonalSignMessage(params[0])
		if err != nil {
			return nil, err
		}
		sig, err := p.signer.SignText(msg)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hexutil.Encode(sig))
	case "eth_signTypedData_v4":
		params, err := stringParams(args.Params, 2)
		if err != nil {
			return nil, err
		}
		sig, err := p.signer.SignTypedDataJSON(params[1])
		if err != nil {
			return nil, &core.ProviderError{Code: -32602, Message: err.Error()}
		}
		return json.Marshal(hexutil.Encode(sig))
	case "eth_sendTransaction":
		if p.send == nil {
			break
		}
		var txs []map[string]any
		if err := remarshal(args.Params, &txs); err != nil || len(txs) != 1 {
			return nil, &core.ProviderError{Code: -32602, Message: "expected [tx]"}
		}
		hash, err := p.send(ctx, txs[0])
		if err != nil {
			return nil, err
		}
		return json.Marshal(hash)
	}
	return nil, &core.ProviderError{Code: CodeUnsupportedMethod, Message: fmt.Sprintf("unsupported method %q", args.Method)}
}

func stringParams(params any, n int) ([]string, error) {
	var out []string
	if err := remarshal(params, &out); err != nil || len(out) < n {
		return nil, &core.ProviderError{Code: -32602, Message: fmt.Sprintf("expected %d string params", n)}
	}
	return out, nil
}

func remarshal(in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func parsePersonalSignMessage(msg string) ([]byte, error) {
	m := strings.TrimSpace(msg)
	if strings.HasPrefix(m, "0x") || strings.HasPrefix(m, "0X") {
		b, err := hexutil.Decode("0x" + m[2:])
		if err != nil {
			return nil, &core.ProviderError{Code: -32602, Message: "invalid message hex"}
		}
		return b, nil
	}
	return []byte(m), nil
}
