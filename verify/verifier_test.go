package verify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/embedwallet/adapters/keyprovider"
	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/internal/eth"
)

// direct adapts a core.Requester to the verifier's Requester without the bridge.
type direct struct {
	p core.Requester
}

func (d direct) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return d.p.Request(ctx, core.RequestArguments{Method: method, Params: params})
}

func newSigner(t *testing.T) *eth.Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return eth.NewSigner(key)
}

var fixedNow = time.UnixMilli(1_717_000_000_000)

func clock() time.Time { return fixedNow }

func TestVerifyPersonalSign(t *testing.T) {
	s := newSigner(t)
	p := keyprovider.New(s, keyprovider.WithChainID(8453))

	res, err := NewVerifier(nil).Verify(context.Background(), direct{p}, WithClock(clock))
	require.NoError(t, err)

	assert.Equal(t, strings.ToLower(s.Address().Hex()), res.Address)
	assert.Equal(t, uint64(8453), res.ChainID)
	assert.Equal(t, fixedNow.UnixMilli(), res.Timestamp)
	assert.Equal(t, core.MethodPersonalSign, res.Method)

	sig, err := eth.DecodeSignature(res.Signature)
	require.NoError(t, err)
	c := core.VerificationChallenge{Address: res.Address, ChainID: res.ChainID, Timestamp: res.Timestamp}
	require.NoError(t, eth.VerifyChallenge(c, core.MethodPersonalSign, sig))

	assert.Equal(t, []string{MethodChainID, MethodAccounts, MethodPersonalSign}, p.Calls())
}

func TestVerifyBindsNonce(t *testing.T) {
	s := newSigner(t)
	p := keyprovider.New(s)

	res, err := NewVerifier(nil).Verify(context.Background(), direct{p}, WithNonce("n0nce1234"), WithClock(clock))
	require.NoError(t, err)
	assert.Equal(t, "n0nce1234", res.Nonce)

	sig, err := eth.DecodeSignature(res.Signature)
	require.NoError(t, err)
	c := core.VerificationChallenge{Address: res.Address, ChainID: res.ChainID, Timestamp: res.Timestamp}
	assert.ErrorIs(t, eth.VerifyChallenge(c, core.MethodPersonalSign, sig), core.ErrAddressMismatch, "nonce is part of the signed message")
}

func TestVerifyMismatchIsTerminal(t *testing.T) {
	s := newSigner(t)
	other := newSigner(t)
	p := keyprovider.New(s, keyprovider.WithAccounts(other.Address().Hex()))

	_, err := NewVerifier(nil).Verify(context.Background(), direct{p})
	require.ErrorIs(t, err, core.ErrAddressMismatch)
	assert.NotContains(t, p.Calls(), MethodSignTypedData)
}

func TestVerifyFallsBackToTypedData(t *testing.T) {
	s := newSigner(t)
	p := keyprovider.New(s, keyprovider.WithChainID(10), keyprovider.WithRejected(MethodPersonalSign))

	res, err := NewVerifier(nil).Verify(context.Background(), direct{p}, WithClock(clock))
	require.NoError(t, err)
	assert.Equal(t, core.MethodTypedData, res.Method)
	assert.Equal(t, uint64(10), res.ChainID)

	sig, err := eth.DecodeSignature(res.Signature)
	require.NoError(t, err)
	c := core.VerificationChallenge{Address: res.Address, ChainID: res.ChainID, Timestamp: res.Timestamp}
	require.NoError(t, eth.VerifyChallenge(c, core.MethodTypedData, sig))
}

func TestVerifyTypedDataMismatch(t *testing.T) {
	s := newSigner(t)
	other := newSigner(t)
	p := keyprovider.New(s,
		keyprovider.WithAccounts(other.Address().Hex()),
		keyprovider.WithRejected(MethodPersonalSign),
	)

	_, err := NewVerifier(nil).Verify(context.Background(), direct{p})
	assert.ErrorIs(t, err, core.ErrAddressMismatch)
}

func TestVerifyBothPathsFail(t *testing.T) {
	s := newSigner(t)
	p := keyprovider.New(s, keyprovider.WithRejected(MethodPersonalSign, MethodSignTypedData))

	_, err := NewVerifier(nil).Verify(context.Background(), direct{p})
	require.ErrorIs(t, err, core.ErrSigningFailed)
	require.ErrorIs(t, err, core.ErrUserRejected)

	var se *core.SigningError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, core.MethodTypedData, se.Method)
	assert.Contains(t, err.Error(), "typed_data")
}

func TestVerifyNoActiveAccount(t *testing.T) {
	s := newSigner(t)
	p := keyprovider.New(s, keyprovider.WithAccounts())

	_, err := NewVerifier(nil).Verify(context.Background(), direct{p})
	require.ErrorIs(t, err, core.ErrNoActiveAccount)
	assert.Equal(t, []string{MethodChainID, MethodAccounts}, p.Calls())
}

type scripted map[string]func(params any) (any, error)

func (s scripted) Request(_ context.Context, method string, params any) (json.RawMessage, error) {
	fn, ok := s[method]
	if !ok {
		return nil, errors.New("unexpected " + method)
	}
	v, err := fn(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func TestVerifyRejectsMalformedReads(t *testing.T) {
	_, err := NewVerifier(nil).Verify(context.Background(), scripted{
		MethodChainID: func(any) (any, error) { return "0x0", nil },
	})
	assert.Error(t, err)

	_, err = NewVerifier(nil).Verify(context.Background(), scripted{
		MethodChainID:  func(any) (any, error) { return "0x1", nil },
		MethodAccounts: func(any) (any, error) { return []string{"not-an-address"}, nil },
	})
	assert.ErrorIs(t, err, core.ErrNoActiveAccount)
}

func TestParseChainID(t *testing.T) {
	for raw, want := range map[string]uint64{
		`"0x2105"`: 8453,
		`"8453"`:   8453,
		`8453`:     8453,
		`"0x1"`:    1,
	} {
		got, err := parseChainID(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{
		`"0x"`, `null`, `"-1"`, `{}`, `"0x1ffffffffffffffffff"`, `"0"`, `"0x0"`, `"+1"`,
		`"0b1"`, `"0o7"`, `"1_0"`, `"0x1_0"`, `"017x"`,
	} {
		_, err := parseChainID(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestVerifyDeadlineOnPlainPathFallsBack(t *testing.T) {
	s := newSigner(t)
	p := keyprovider.New(s)
	calls := 0
	r := scripted{
		MethodChainID:  func(any) (any, error) { return "0x1", nil },
		MethodAccounts: func(any) (any, error) { return []string{s.Address().Hex()}, nil },
		MethodPersonalSign: func(any) (any, error) {
			calls++
			return nil, &core.DeadlineError{Label: MethodPersonalSign, Timeout: time.Second}
		},
		MethodSignTypedData: func(params any) (any, error) {
			raw, err := p.Request(context.Background(), core.RequestArguments{Method: MethodSignTypedData, Params: params})
			if err != nil {
				return nil, err
			}
			var sig string
			if err := json.Unmarshal(raw, &sig); err != nil {
				return nil, err
			}
			return sig, nil
		},
	}

	res, err := NewVerifier(nil).Verify(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, core.MethodTypedData, res.Method)
}
