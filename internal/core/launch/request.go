// Package launch models the requests a host process issues to start a
// component, and the side payload that travels with a request after it has
// been redirected to a placeholder.
package launch

import (
	"maps"
	"slices"

	"kilometers.ai/standin/internal/core/component"
)

// Request asks the host platform to start a component
type Request struct {
	// Target is nil when the request names no component, e.g. an
	// action-only request the platform resolves itself
	Target *component.Name `json:"target,omitempty"`

	Action     string         `json:"action,omitempty"`
	Data       string         `json:"data,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	Flags      int            `json:"flags,omitempty"`
	Extras     map[string]any `json:"extras,omitempty"`
}

// NewRequest creates a request targeting name
func NewRequest(target component.Name) *Request {
	return &Request{Target: &target}
}

// HasTarget reports whether the request names a component
func (r *Request) HasTarget() bool {
	return r != nil && r.Target != nil && !r.Target.IsZero()
}

// SetTarget replaces the request target in place
func (r *Request) SetTarget(target component.Name) {
	r.Target = &target
}

// Extra returns the extra stored under key
func (r *Request) Extra(key string) (any, bool) {
	if r == nil || r.Extras == nil {
		return nil, false
	}
	v, ok := r.Extras[key]
	return v, ok
}

// PutExtra stores value under key, allocating the extras map on first use
func (r *Request) PutExtra(key string, value any) {
	if r.Extras == nil {
		r.Extras = make(map[string]any)
	}
	r.Extras[key] = value
}

// Clone copies the request. Target, categories and the top level of the
// extras map are copied; extra values themselves are shared.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	if r.Target != nil {
		target := *r.Target
		out.Target = &target
	}
	out.Categories = slices.Clone(r.Categories)
	if r.Extras != nil {
		out.Extras = maps.Clone(r.Extras)
	}
	return &out
}
