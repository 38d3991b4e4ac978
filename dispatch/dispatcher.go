// Package dispatch sends state-changing wallet calls through the selected provider
// after re-checking that the provider and account are still the verified ones.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/layer-3/embedwallet/core"
)

var (
	ErrNotVerified    = errors.New("wallet not verified")
	ErrSenderMismatch = errors.New("sender is not the verified address")
	ErrChainMismatch  = errors.New("provider chain differs from verified chain")
	ErrInvalidAmount  = errors.New("invalid amount")
)

const (
	methodChainID         = "eth_chainId"
	methodSendTransaction = "eth_sendTransaction"
)

// Requester is the provider request surface. *provider.Bridge satisfies it.
type Requester interface {
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// Guard blocks dispatch when an extension provider is live. *provider.Tripwire satisfies it.
type Guard interface {
	AssertNoExtensionProvider() error
}

// TxRequest describes a transaction in display units.
type TxRequest struct {
	From     string
	To       string
	Amount   string // decimal amount in whole tokens, e.g. "1.5"
	Decimals int32
	Data     string
	ChainID  uint64 // zero means the verified chain
}

// Dispatcher sends transactions for a single verified wallet.
type Dispatcher struct {
	requester Requester
	guard     Guard
	verified  *core.VerificationResult
	logger    watermill.LoggerAdapter
}

// NewDispatcher creates a Dispatcher bound to the result of a successful verification.
func NewDispatcher(r Requester, guard Guard, verified *core.VerificationResult, logger watermill.LoggerAdapter) (*Dispatcher, error) {
	if verified == nil || verified.Address == "" {
		return nil, ErrNotVerified
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Dispatcher{requester: r, guard: guard, verified: verified, logger: logger}, nil
}

// SendTransaction checks the tripwire, the sender and the chain, then submits the
// transaction and returns its hash.
func (d *Dispatcher) SendTransaction(ctx context.Context, tx TxRequest) (string, error) {
	if d.guard != nil {
		if err := d.guard.AssertNoExtensionProvider(); err != nil {
			return "", err
		}
	}
	if !core.SameAddress(tx.From, d.verified.Address) {
		return "", fmt.Errorf("%w: %s", ErrSenderMismatch, tx.From)
	}
	if !common.IsHexAddress(tx.To) {
		return "", fmt.Errorf("invalid recipient %q", tx.To)
	}
	if tx.ChainID != 0 && tx.ChainID != d.verified.ChainID {
		return "", fmt.Errorf("%w: requested %d, verified %d", ErrChainMismatch, tx.ChainID, d.verified.ChainID)
	}

	value, err := ToBaseUnits(tx.Amount, tx.Decimals)
	if err != nil {
		return "", err
	}

	if err := d.checkChain(ctx); err != nil {
		return "", err
	}

	call := map[string]any{
		"from":  common.HexToAddress(tx.From).Hex(),
		"to":    common.HexToAddress(tx.To).Hex(),
		"value": hexutil.EncodeBig(value.BigInt()),
	}
	if tx.Data != "" {
		call["data"] = tx.Data
	}

	fields := watermill.LogFields{"from": tx.From, "to": tx.To, "amount": tx.Amount}
	d.logger.Info("Sending transaction", fields)

	raw, err := d.requester.Request(ctx, methodSendTransaction, []any{call})
	if err != nil {
		d.logger.Error("Transaction failed", err, fields)
		return "", err
	}
	var hash string
	if err := json.Unmarshal(raw, &hash); err != nil {
		return "", fmt.Errorf("unexpected transaction hash payload: %w", err)
	}
	d.logger.Info("Transaction sent", fields.Add(watermill.LogFields{"hash": hash}))
	return hash, nil
}

func (d *Dispatcher) checkChain(ctx context.Context) error {
	raw, err := d.requester.Request(ctx, methodChainID, nil)
	if err != nil {
		return fmt.Errorf("failed to read chain id: %w", err)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("unexpected chain id payload: %w", err)
	}
	id, err := hexutil.DecodeUint64(s)
	if err != nil {
		return fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	if id != d.verified.ChainID {
		return fmt.Errorf("%w: provider %d, verified %d", ErrChainMismatch, id, d.verified.ChainID)
	}
	return nil
}

// ToBaseUnits converts a display amount to integer base units. Negative amounts and
// amounts with more fractional digits than decimals are rejected.
func ToBaseUnits(amount string, decimals int32) (decimal.Decimal, error) {
	if decimals < 0 {
		return decimal.Zero, fmt.Errorf("%w: negative decimals", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}
	units := d.Shift(decimals)
	if !units.Equal(units.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, amount, decimals)
	}
	return units, nil
}
