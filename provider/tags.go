package provider

import (
	"sync"

	"github.com/layer-3/embedwallet/core"
)

// TagSet remembers which injected objects were accepted through the trusted-host
// exception. The tag is held here instead of being written onto the provider object.
type TagSet struct {
	mu     sync.RWMutex
	tagged []core.Candidate
}

// NewTagSet returns an empty TagSet.
func NewTagSet() *TagSet {
	return &TagSet{}
}

// Tag marks c. Tagging the same object twice is a no-op.
func (t *TagSet) Tag(c core.Candidate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, x := range t.tagged {
		if sameCandidate(x, c) {
			return
		}
	}
	t.tagged = append(t.tagged, c)
}

// Has reports whether c was tagged.
func (t *TagSet) Has(c core.Candidate) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, x := range t.tagged {
		if sameCandidate(x, c) {
			return true
		}
	}
	return false
}

// Reset forgets all tags.
func (t *TagSet) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tagged = nil
}
