package ports

import (
	"context"
	"time"

	"github.com/layer-3/embedwallet/core"
)

// Environment is a read-only view of the script context the mini app runs in
type Environment interface {
	// IsNested reports whether the page is framed inside another top-level context.
	// An error means the cross-origin probe itself failed.
	IsNested() (bool, error)

	// Referrer returns the referring document URL, or "" when there is none
	Referrer() string

	// Global returns a well-known named provider handle, or nil
	Global(name string) core.Candidate

	// Injected returns the single injected provider object, or nil
	Injected() core.Candidate

	// HostSDK returns the embedding container's SDK, or nil
	HostSDK() core.HostSDK
}

// Announcer discovers providers through the request/announce event pair
type Announcer interface {
	// Discover broadcasts a request and collects announcements until window elapses
	Discover(ctx context.Context, window time.Duration) ([]core.Candidate, error)
}
