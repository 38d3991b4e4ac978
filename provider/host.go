package provider

import (
	"net/url"
	"strings"

	"github.com/layer-3/embedwallet/ports"
)

// TrustedHostDomains is the hard-coded allow-list of host domains. A referrer matches
// when its host equals an entry or is a subdomain of one.
var TrustedHostDomains = []string{
	"farcaster.xyz",
	"warpcast.com",
}

// IsEmbeddedInTrustedHost reports whether the page is framed by a recognised host.
// It is recomputed on every call and never cached.
//
// The page must be nested, and either the referrer must match the allow-list or the
// host SDK must expose its sign-in capability. A failing frame probe counts as nested.
func IsEmbeddedInTrustedHost(env ports.Environment) (trusted bool) {
	if env == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			trusted = false
		}
	}()

	nested, err := env.IsNested()
	if err != nil {
		nested = true
	}
	if !nested {
		return false
	}
	if ReferrerTrusted(env.Referrer()) {
		return true
	}
	sdk := env.HostSDK()
	return sdk != nil && sdk.CanSignIn()
}

// ReferrerTrusted reports whether referrer's origin belongs to TrustedHostDomains.
func ReferrerTrusted(referrer string) bool {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return false
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, d := range TrustedHostDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
