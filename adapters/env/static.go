// Package env provides a fixed ports.Environment.
package env

import (
	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/ports"
)

// Static is an Environment whose values are set up front by the caller.
type Static struct {
	Nested      bool
	NestedErr   error
	ReferrerURL string
	Globals     map[string]core.Candidate
	Provider    core.Candidate
	SDK         core.HostSDK
}

var _ ports.Environment = (*Static)(nil)

func (s *Static) IsNested() (bool, error) {
	return s.Nested, s.NestedErr
}

func (s *Static) Referrer() string {
	return s.ReferrerURL
}

func (s *Static) Global(name string) core.Candidate {
	if s.Globals == nil {
		return nil
	}
	return s.Globals[name]
}

func (s *Static) Injected() core.Candidate {
	return s.Provider
}

func (s *Static) HostSDK() core.HostSDK {
	return s.SDK
}

// TrustedFrame returns an environment framed by a trusted host with the given injected provider.
func TrustedFrame(injected core.Candidate) *Static {
	return &Static{
		Nested:      true,
		ReferrerURL: "https://farcaster.xyz/miniapps/lend",
		Provider:    injected,
	}
}
