// Package hostsdk adapts the embedding container's SDK.
package hostsdk

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/layer-3/embedwallet/core"
)

// MinNonceLength is the shortest nonce the host accepts for sign-in.
const MinNonceLength = 8

type nonceGuard struct {
	core.HostSDK
}

// WithNonceGuard wraps sdk so that SignIn always receives a well-formed nonce:
// alphanumeric and at least MinNonceLength characters. Malformed nonces are stripped
// to their alphanumeric characters and replaced outright when too short.
func WithNonceGuard(sdk core.HostSDK) core.HostSDK {
	if sdk == nil {
		return nil
	}
	if _, ok := sdk.(nonceGuard); ok {
		return sdk
	}
	return nonceGuard{sdk}
}

func (g nonceGuard) SignIn(ctx context.Context, opts core.SignInOptions) (core.SignInResult, error) {
	opts.Nonce = NormalizeNonce(opts.Nonce)
	return g.HostSDK.SignIn(ctx, opts)
}

// NormalizeNonce returns nonce without non-alphanumeric characters, or a fresh
// random nonce when fewer than MinNonceLength remain.
func NormalizeNonce(nonce string) string {
	clean := strings.Map(func(r rune) rune {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			return r
		}
		return -1
	}, nonce)
	if len(clean) >= MinNonceLength {
		return clean
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
