package eth

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer signs on behalf of a single secp256k1 key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner wraps a private key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// NewSignerFromHex parses a hex encoded private key.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(trim0x(hexKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return NewSigner(key), nil
}

// Address returns the signer's address.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignHash signs a 32 byte digest and returns r || s || v with v in {27, 28}.
func (s *Signer) SignHash(hash []byte) ([]byte, error) {
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// SignText produces an EIP-191 personal signature.
func (s *Signer) SignText(message []byte) ([]byte, error) {
	return s.SignHash(accounts.TextHash(message))
}

// SignTypedDataJSON produces an EIP-712 signature over a JSON encoded typed data document.
func (s *Signer) SignTypedDataJSON(raw string) ([]byte, error) {
	var td apitypes.TypedData
	if err := json.Unmarshal([]byte(raw), &td); err != nil {
		return nil, fmt.Errorf("failed to unmarshal typed data: %w", err)
	}
	hash, err := TypedDataHash(td)
	if err != nil {
		return nil, err
	}
	return s.SignHash(hash)
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
