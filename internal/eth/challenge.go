package eth

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/layer-3/embedwallet/core"
)

const (
	// Statement is the fixed purpose line of every verification challenge.
	Statement = "Sign this message to prove you control this wallet. It does not send a transaction or cost gas."

	// DomainName and DomainVersion identify the typed-data verification schema.
	DomainName    = "Embedded Wallet Verification"
	DomainVersion = "1"

	// PrimaryType is the typed-data struct that gets signed.
	PrimaryType = "WalletVerification"
)

var verificationTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	},
	PrimaryType: {
		{Name: "wallet", Type: "address"},
		{Name: "chainId", Type: "uint256"},
		{Name: "timestamp", Type: "uint256"},
		{Name: "nonce", Type: "string"},
		{Name: "statement", Type: "string"},
	},
}

// ChallengeMessage renders the plain-text challenge signed through personal_sign.
// The rendering is deterministic so a server can rebuild it from a proof.
func ChallengeMessage(c core.VerificationChallenge) string {
	var b strings.Builder
	b.WriteString(Statement)
	b.WriteString("\n\nAddress: ")
	b.WriteString(strings.ToLower(c.Address))
	b.WriteString("\nChain ID: ")
	b.WriteString(strconv.FormatUint(c.ChainID, 10))
	b.WriteString("\nTimestamp: ")
	b.WriteString(strconv.FormatInt(c.Timestamp, 10))
	if c.Nonce != "" {
		b.WriteString("\nNonce: ")
		b.WriteString(c.Nonce)
	}
	return b.String()
}

// VerificationDomain returns the EIP-712 domain for chainID.
func VerificationDomain(chainID uint64) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:    DomainName,
		Version: DomainVersion,
		ChainId: (*math.HexOrDecimal256)(new(big.Int).SetUint64(chainID)),
	}
}

// TypedChallenge builds the typed-data form of the challenge used for local recovery.
// Numeric fields are exact integers.
func TypedChallenge(c core.VerificationChallenge) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       verificationTypes,
		PrimaryType: PrimaryType,
		Domain:      VerificationDomain(c.ChainID),
		Message: apitypes.TypedDataMessage{
			"wallet":    strings.ToLower(c.Address),
			"chainId":   new(big.Int).SetUint64(c.ChainID),
			"timestamp": big.NewInt(c.Timestamp),
			"nonce":     c.Nonce,
			"statement": Statement,
		},
	}
}

type wireDomain struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	ChainID string `json:"chainId"`
}

type wireTypedData struct {
	Types       apitypes.Types    `json:"types"`
	PrimaryType string            `json:"primaryType"`
	Domain      wireDomain        `json:"domain"`
	Message     map[string]string `json:"message"`
}

// TypedChallengeJSON renders the typed-data challenge for eth_signTypedData_v4.
// Every numeric value is a decimal string so no precision is lost on the wire.
func TypedChallengeJSON(c core.VerificationChallenge) (string, error) {
	chainID := strconv.FormatUint(c.ChainID, 10)
	wire := wireTypedData{
		Types:       verificationTypes,
		PrimaryType: PrimaryType,
		Domain: wireDomain{
			Name:    DomainName,
			Version: DomainVersion,
			ChainID: chainID,
		},
		Message: map[string]string{
			"wallet":    strings.ToLower(c.Address),
			"chainId":   chainID,
			"timestamp": strconv.FormatInt(c.Timestamp, 10),
			"nonce":     c.Nonce,
			"statement": Statement,
		},
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("failed to marshal typed data: %w", err)
	}
	return string(raw), nil
}
