package provider

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/layer-3/embedwallet/core"
)

// Selection is the provider chosen as authoritative for the session.
// Only Select creates one, and a Bridge can only be built from a Selection.
type Selection struct {
	candidate core.Candidate
	tagged    bool
}

// Candidate returns the selected provider handle.
func (s *Selection) Candidate() core.Candidate {
	return s.candidate
}

// Tagged reports whether the selection went through the trusted-host exception.
func (s *Selection) Tagged() bool {
	return s.tagged
}

// Name returns the provider's self-declared name.
func (s *Selection) Name() string {
	return name(s.candidate)
}

// Select picks exactly one usable, non-extension candidate. A candidate declaring an
// embedded-wallet flag wins; otherwise the first in priority order is taken.
//
// When nothing qualifies, the injected global is accepted and tagged, even if it
// fingerprints as an extension, provided the page is embedded in a trusted host and
// no other usable candidate exists. Otherwise ErrNoProviderFound is returned.
func (d *Discovery) Select(candidates []core.Candidate) (*Selection, error) {
	var first, embedded core.Candidate
	for _, c := range candidates {
		if !usable(c) || LooksLikeExtension(c) {
			continue
		}
		if first == nil {
			first = c
		}
		if embedded == nil && IsEmbeddedWallet(c) {
			embedded = c
		}
	}

	pick := first
	if embedded != nil {
		pick = embedded
	}
	if pick != nil {
		d.logger.Info("Provider selected", watermill.LogFields{"name": name(pick), "embedded": embedded != nil})
		return &Selection{candidate: pick}, nil
	}

	if sel := d.sanctionedInjected(candidates); sel != nil {
		return sel, nil
	}

	d.logger.Info("No embedded provider found", watermill.LogFields{"candidates": len(candidates)})
	return nil, fmt.Errorf("%w: %d candidates rejected", core.ErrNoProviderFound, len(candidates))
}

func (d *Discovery) sanctionedInjected(candidates []core.Candidate) *Selection {
	if d.env == nil {
		return nil
	}
	injected := d.env.Injected()
	if !usable(injected) {
		return nil
	}
	for _, c := range candidates {
		if usable(c) && !sameCandidate(c, injected) {
			return nil
		}
	}
	if !IsEmbeddedInTrustedHost(d.env) {
		return nil
	}

	d.tags.Tag(injected)
	d.logger.Info("Injected provider accepted inside trusted host", watermill.LogFields{
		"name":      name(injected),
		"extension": LooksLikeExtension(injected),
	})
	return &Selection{candidate: injected, tagged: true}
}
