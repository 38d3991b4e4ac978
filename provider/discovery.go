package provider

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/ports"
)

// KnownGlobals are named handles some hosts expose explicitly, highest priority first.
var KnownGlobals = []string{
	"farcasterEthProvider",
	"__farcasterEthereumProvider",
	"warpcastEthereum",
}

// DefaultAnnounceWindow bounds how long Collect listens for provider announcements.
const DefaultAnnounceWindow = 50 * time.Millisecond

// Source tells where a candidate was found.
type Source string

const (
	SourceNamedGlobal   Source = "named_global"
	SourceMultiProvider Source = "multi_provider"
	SourceAnnouncement  Source = "announcement"
	SourceInjected      Source = "injected"
)

// Discovery collects and selects providers for one page session.
type Discovery struct {
	env       ports.Environment
	announcer ports.Announcer
	window    time.Duration
	tags      *TagSet
	logger    watermill.LoggerAdapter
}

// Option configures a Discovery.
type Option func(*Discovery)

// WithAnnouncer enables the announcement source.
func WithAnnouncer(a ports.Announcer) Option {
	return func(d *Discovery) { d.announcer = a }
}

// WithAnnounceWindow overrides DefaultAnnounceWindow.
func WithAnnounceWindow(w time.Duration) Option {
	return func(d *Discovery) {
		if w > 0 {
			d.window = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l watermill.LoggerAdapter) Option {
	return func(d *Discovery) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithTags shares an existing TagSet.
func WithTags(t *TagSet) Option {
	return func(d *Discovery) {
		if t != nil {
			d.tags = t
		}
	}
}

// NewDiscovery creates a Discovery over env.
func NewDiscovery(env ports.Environment, opts ...Option) *Discovery {
	d := &Discovery{
		env:    env,
		window: DefaultAnnounceWindow,
		tags:   NewTagSet(),
		logger: watermill.NopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tags returns the tag set shared with the tripwire.
func (d *Discovery) Tags() *TagSet {
	return d.tags
}

// Tripwire returns a tripwire bound to the same environment and tags.
func (d *Discovery) Tripwire() *Tripwire {
	return NewTripwire(d.env, d.tags, d.logger)
}

// Collect returns every reachable candidate with a request surface, deduplicated by
// identity, in priority order: named globals, the injected multi-provider array,
// announced providers, then the injected global itself.
func (d *Discovery) Collect(ctx context.Context) []core.Candidate {
	var out []core.Candidate
	add := func(c core.Candidate, src Source) {
		if !usable(c) {
			return
		}
		for _, x := range out {
			if sameCandidate(x, c) {
				return
			}
		}
		d.logger.Trace("Provider candidate found", watermill.LogFields{"source": src, "name": name(c)})
		out = append(out, c)
	}

	if d.env != nil {
		for _, n := range KnownGlobals {
			add(d.env.Global(n), SourceNamedGlobal)
		}
	}

	var injected core.Candidate
	if d.env != nil {
		injected = d.env.Injected()
	}
	if cand, ok := asCandidate(injected); ok {
		if multi, ok := cand.(core.MultiProvider); ok {
			for _, c := range multi.Providers() {
				add(c, SourceMultiProvider)
			}
		}
	}

	if d.announcer != nil {
		announced, err := d.announcer.Discover(ctx, d.window)
		if err != nil {
			d.logger.Error("Provider announcement failed", err, nil)
		}
		for _, c := range announced {
			add(c, SourceAnnouncement)
		}
	}

	add(injected, SourceInjected)

	d.logger.Debug("Provider candidates collected", watermill.LogFields{"count": len(out)})
	return out
}

// Discover collects candidates and selects one.
func (d *Discovery) Discover(ctx context.Context) (*Selection, error) {
	return d.Select(d.Collect(ctx))
}
