// Package provider finds the host's embedded transaction-signing provider, keeps
// browser-extension wallets out of the way and bridges calls to the chosen provider.
//
// Fingerprinting here relies on self-declared flags and is only a convenience filter.
// Ownership is proven separately by the verify package.
package provider

import (
	"reflect"
)

// ExtensionFlags are the self-declared flags set by known browser-extension wallets.
var ExtensionFlags = []string{
	"isMetaMask",
	"isCoinbaseWallet",
	"isBraveWallet",
	"isRabby",
	"isTrust",
	"isTrustWallet",
	"isPhantom",
	"isOkxWallet",
	"isOKExWallet",
	"isBitKeep",
	"isTokenPocket",
	"isFrame",
	"isExodus",
	"isRainbow",
	"isZerion",
}

// EmbeddedFlags are the flags an embedded host wallet declares.
var EmbeddedFlags = []string{
	"isFarcasterEmbedded",
	"isFarcaster",
	"isWarpcast",
}

// LooksLikeExtension reports whether c carries any known extension flag.
// Missing info counts as no flag. A candidate whose info cannot be read is treated
// as an extension.
func LooksLikeExtension(c any) (ext bool) {
	defer func() {
		if recover() != nil {
			ext = true
		}
	}()
	return anyFlag(c, ExtensionFlags)
}

// IsEmbeddedWallet reports whether c declares itself as the host's embedded wallet.
// It returns false if the info cannot be read.
func IsEmbeddedWallet(c any) (embedded bool) {
	defer func() {
		if recover() != nil {
			embedded = false
		}
	}()
	return anyFlag(c, EmbeddedFlags)
}

func anyFlag(c any, flags []string) bool {
	cand, ok := asCandidate(c)
	if !ok {
		return false
	}
	info := cand.Info()
	for _, f := range flags {
		if info.Flag(f) {
			return true
		}
	}
	return false
}

// sameCandidate compares by identity. Candidates of non-comparable dynamic types are
// never considered equal.
func sameCandidate(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
