package provider

import (
	"reflect"

	"github.com/layer-3/embedwallet/core"
)

func asCandidate(c any) (core.Candidate, bool) {
	if c == nil {
		return nil, false
	}
	cand, ok := c.(core.Candidate)
	if !ok {
		return nil, false
	}
	// A typed nil pointer inside the interface is as good as absent.
	v := reflect.ValueOf(cand)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, false
	}
	return cand, true
}

func usable(c core.Candidate) bool {
	cand, ok := asCandidate(c)
	return ok && core.HasRequestSurface(cand)
}

func name(c core.Candidate) (n string) {
	defer func() {
		if recover() != nil {
			n = "<unreadable>"
		}
	}()
	if cand, ok := asCandidate(c); ok {
		return cand.Info().Name
	}
	return ""
}
