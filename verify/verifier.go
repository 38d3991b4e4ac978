// Package verify proves that the account reported by a provider is controlled by
// the connected session. The signature recovery check in this package is the trust
// boundary; provider selection is only a filter in front of it.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/internal/eth"
)

// RPC methods used by the protocol. eth_requestAccounts is deliberately absent: it can
// prompt, and some hosts route it to a different provider.
const (
	MethodChainID       = "eth_chainId"
	MethodAccounts      = "eth_accounts"
	MethodPersonalSign  = "personal_sign"
	MethodSignTypedData = "eth_signTypedData_v4"
)

// Requester is the request surface the verifier needs. *provider.Bridge satisfies it.
type Requester interface {
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// Verifier runs verification attempts. It holds no per-attempt state.
type Verifier struct {
	logger watermill.LoggerAdapter
	now    func() time.Time
}

// NewVerifier creates a Verifier.
func NewVerifier(logger watermill.LoggerAdapter) *Verifier {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Verifier{logger: logger, now: time.Now}
}

type options struct {
	nonce string
	now   func() time.Time
}

// Option configures one attempt.
type Option func(*options)

// WithNonce binds a server-issued nonce into the challenge.
func WithNonce(nonce string) Option {
	return func(o *options) { o.nonce = nonce }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// attempt tracks one run of the protocol.
type attempt struct {
	state  core.State
	logger watermill.LoggerAdapter
}

func (a *attempt) to(s core.State, fields watermill.LogFields) {
	a.logger.Debug("Verification state", watermill.LogFields{"from": a.state.String(), "to": s.String()}.Add(fields))
	a.state = s
}

func (a *attempt) fail(err error) error {
	a.logger.Error("Verification failed", err, watermill.LogFields{"from": a.state.String()})
	a.state = core.StateFailed
	return err
}

// Verify reads the chain id and first account from r and proves control of the account.
// It tries personal_sign first and falls back to eth_signTypedData_v4 when that call fails.
// A recovered signer that differs from the account is always ErrAddressMismatch.
// Every failure ends the attempt; nothing is retried.
func (v *Verifier) Verify(ctx context.Context, r Requester, opts ...Option) (*core.VerificationResult, error) {
	o := options{now: v.now}
	for _, opt := range opts {
		opt(&o)
	}
	a := &attempt{state: core.StateStart, logger: v.logger}

	chainID, err := readChainID(ctx, r)
	if err != nil {
		return nil, a.fail(err)
	}
	account, err := readAccount(ctx, r)
	if err != nil {
		return nil, a.fail(err)
	}
	a.to(core.StateHaveChainAndAccount, watermill.LogFields{"address": account, "chain_id": chainID})

	challenge := core.VerificationChallenge{
		Address:   account,
		ChainID:   chainID,
		Timestamp: o.now().UnixMilli(),
		Nonce:     o.nonce,
	}

	sig, plainErr := v.signPlain(ctx, r, challenge)
	if plainErr == nil {
		a.to(core.StateSignedPlain, nil)
		return v.finish(a, challenge, core.MethodPersonalSign, sig)
	}
	if errors.Is(plainErr, core.ErrAddressMismatch) {
		return nil, a.fail(plainErr)
	}
	v.logger.Info("personal_sign failed, falling back to typed data", watermill.LogFields{"error": plainErr.Error()})

	sig, typedErr := v.signTyped(ctx, r, challenge)
	if typedErr != nil {
		return nil, a.fail(combine(plainErr, typedErr))
	}
	a.to(core.StateSignedTyped, nil)
	return v.finish(a, challenge, core.MethodTypedData, sig)
}

func (v *Verifier) finish(a *attempt, c core.VerificationChallenge, m core.Method, sig string) (*core.VerificationResult, error) {
	res := &core.VerificationResult{
		Address:   strings.ToLower(c.Address),
		ChainID:   c.ChainID,
		Signature: sig,
		Timestamp: c.Timestamp,
		Method:    m,
		Nonce:     c.Nonce,
	}
	a.to(core.StateVerified, watermill.LogFields{"method": string(m)})
	return res, nil
}

// signPlain requests and checks a personal_sign signature.
func (v *Verifier) signPlain(ctx context.Context, r Requester, c core.VerificationChallenge) (string, error) {
	msg := eth.ChallengeMessage(c)
	raw, err := r.Request(ctx, MethodPersonalSign, []any{hexutil.Encode([]byte(msg)), c.Address})
	if err != nil {
		return "", err
	}
	return checkSignature(raw, c, core.MethodPersonalSign)
}

// signTyped requests and checks an eth_signTypedData_v4 signature.
func (v *Verifier) signTyped(ctx context.Context, r Requester, c core.VerificationChallenge) (string, error) {
	doc, err := eth.TypedChallengeJSON(c)
	if err != nil {
		return "", err
	}
	raw, err := r.Request(ctx, MethodSignTypedData, []any{c.Address, doc})
	if err != nil {
		return "", err
	}
	return checkSignature(raw, c, core.MethodTypedData)
}

func checkSignature(raw json.RawMessage, c core.VerificationChallenge, m core.Method) (string, error) {
	var sigHex string
	if err := json.Unmarshal(raw, &sigHex); err != nil {
		return "", fmt.Errorf("unexpected signature payload: %w", core.ErrInvalidSignature)
	}
	sig, err := eth.DecodeSignature(sigHex)
	if err != nil {
		return "", err
	}
	if err := eth.VerifyChallenge(c, m, sig); err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// combine reports the typed-data failure, which is the more specific one once the
// plain path has already failed.
func combine(plainErr, typedErr error) error {
	if errors.Is(typedErr, core.ErrAddressMismatch) {
		return typedErr
	}
	return &core.SigningError{
		Method: core.MethodTypedData,
		Err:    fmt.Errorf("%w (personal_sign: %v)", typedErr, plainErr),
	}
}

func readChainID(ctx context.Context, r Requester) (uint64, error) {
	raw, err := r.Request(ctx, MethodChainID, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read chain id: %w", err)
	}
	return parseChainID(raw)
}

// parseChainID accepts a 0x-prefixed hex quantity, a decimal string or a JSON number.
func parseChainID(raw json.RawMessage) (uint64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("unexpected chain id payload %s", string(raw))
		}
		s = n.String()
	}
	s = strings.TrimSpace(s)

	var (
		id  uint64
		err error
	)
	if strings.HasPrefix(s, "0x") {
		id, err = hexutil.DecodeUint64(s)
	} else {
		id, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid chain id %q", s)
	}
	return id, nil
}

func readAccount(ctx context.Context, r Requester) (string, error) {
	raw, err := r.Request(ctx, MethodAccounts, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read accounts: %w", err)
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return "", fmt.Errorf("unexpected accounts payload: %w", err)
	}
	if len(accounts) == 0 {
		return "", core.ErrNoActiveAccount
	}
	if !common.IsHexAddress(accounts[0]) {
		return "", fmt.Errorf("invalid account %q: %w", accounts[0], core.ErrNoActiveAccount)
	}
	return accounts[0], nil
}
