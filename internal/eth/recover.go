package eth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/layer-3/embedwallet/core"
)

// SignatureLength is the byte length of an r || s || v signature.
const SignatureLength = 65

// DecodeSignature decodes a 0x-prefixed signature and checks its length.
func DecodeSignature(signature string) ([]byte, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes: %w", SignatureLength, core.ErrInvalidSignature)
	}
	return sig, nil
}

// RecoverAddress recovers the signer of a 32 byte hash.
// Both 0/1 and 27/28 recovery ids are accepted.
func RecoverAddress(hash []byte, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes: %w", SignatureLength, core.ErrInvalidSignature)
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", core.ErrInvalidSignature)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// RecoverPersonal recovers the EIP-191 signer of message.
func RecoverPersonal(message []byte, signature []byte) (common.Address, error) {
	return RecoverAddress(accounts.TextHash(message), signature)
}

// TypedDataHash returns the EIP-712 digest of td.
func TypedDataHash(td apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return hash, nil
}

// RecoverTypedData recovers the EIP-712 signer of td.
func RecoverTypedData(td apitypes.TypedData, signature []byte) (common.Address, error) {
	hash, err := TypedDataHash(td)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverAddress(hash, signature)
}

// VerifySignatureAgainstAddress reports whether the signer of hash is expected.
func VerifySignatureAgainstAddress(hash []byte, signature []byte, expected common.Address) (bool, error) {
	recovered, err := RecoverAddress(hash, signature)
	if err != nil {
		return false, err
	}
	return recovered == expected, nil
}

// VerifyChallenge checks a proof produced for c by the given method and returns
// ErrAddressMismatch when the recovered signer is not c.Address.
func VerifyChallenge(c core.VerificationChallenge, method core.Method, signature []byte) error {
	var (
		recovered common.Address
		err       error
	)
	switch method {
	case core.MethodPersonalSign:
		recovered, err = RecoverPersonal([]byte(ChallengeMessage(c)), signature)
	case core.MethodTypedData:
		recovered, err = RecoverTypedData(TypedChallenge(c), signature)
	default:
		return fmt.Errorf("unknown signing method %q: %w", method, core.ErrInvalidSignature)
	}
	if err != nil {
		return err
	}
	if !core.SameAddress(recovered.Hex(), c.Address) {
		return fmt.Errorf("%w: recovered %s, claimed %s", core.ErrAddressMismatch, strings.ToLower(recovered.Hex()), strings.ToLower(c.Address))
	}
	return nil
}
