package provider

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/ports"
)

// Tripwire re-checks the live injected provider at trust boundaries.
type Tripwire struct {
	env    ports.Environment
	tags   *TagSet
	logger watermill.LoggerAdapter
}

// NewTripwire creates a Tripwire. tags must be the set used by the selector.
func NewTripwire(env ports.Environment, tags *TagSet, logger watermill.LoggerAdapter) *Tripwire {
	if tags == nil {
		tags = NewTagSet()
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Tripwire{env: env, tags: tags, logger: logger}
}

// AssertNoExtensionProvider returns core.ErrExtensionBlocked when the injected provider
// fingerprints as an extension, the page is not inside a trusted host and the object
// was not tagged by the selector. It is safe to call any number of times.
func (t *Tripwire) AssertNoExtensionProvider() error {
	if t.env == nil {
		return nil
	}
	injected := t.env.Injected()
	if _, ok := asCandidate(injected); !ok {
		return nil
	}
	if !LooksLikeExtension(injected) {
		return nil
	}
	if t.tags.Has(injected) || IsEmbeddedInTrustedHost(t.env) {
		return nil
	}

	err := fmt.Errorf("%w: %q", core.ErrExtensionBlocked, name(injected))
	t.logger.Error("Tripwire triggered", err, watermill.LogFields{"name": name(injected)})
	return err
}
