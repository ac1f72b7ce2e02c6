// Package binding provides binding policies that hand out placeholder
// components from pools the host declared ahead of time.
package binding

import (
	"errors"
	"fmt"
	"slices"

	"kilometers.ai/standin/internal/core/component"
)

var (
	ErrEmptyPool       = errors.New("placeholder pool cannot be empty")
	ErrUnknownCategory = errors.New("no placeholder pool for category")
	ErrUnknownKind     = errors.New("unknown binding policy")
)

// ErrDuplicatePlaceholder creates an error for a placeholder listed twice
func ErrDuplicatePlaceholder(name component.Name) error {
	return fmt.Errorf("placeholder %s listed more than once", name)
}

// ErrPartialPlaceholder creates an error for a placeholder without a namespace
func ErrPartialPlaceholder(name component.Name) error {
	return fmt.Errorf("placeholder %q must be fully qualified", name.String())
}

// Pool is an immutable, ordered set of placeholder components
type Pool struct {
	members []component.Name
}

// NewPool creates a pool with validation. Order is preserved.
func NewPool(members ...component.Name) (Pool, error) {
	if len(members) == 0 {
		return Pool{}, ErrEmptyPool
	}

	seen := make(map[component.Name]struct{}, len(members))
	for _, m := range members {
		if m.IsZero() || m.IsPartial() {
			return Pool{}, ErrPartialPlaceholder(m)
		}
		if _, dup := seen[m]; dup {
			return Pool{}, ErrDuplicatePlaceholder(m)
		}
		seen[m] = struct{}{}
	}
	return Pool{members: slices.Clone(members)}, nil
}

// ParsePool builds a pool from text identifiers. Entries without a namespace
// are qualified with hostNamespace.
func ParsePool(hostNamespace string, entries []string) (Pool, error) {
	members := make([]component.Name, 0, len(entries))
	for _, entry := range entries {
		name, err := component.Parse(entry)
		if err != nil {
			return Pool{}, fmt.Errorf("invalid placeholder %q: %w", entry, err)
		}
		if name.IsPartial() && hostNamespace != "" {
			name = name.WithNamespace(hostNamespace)
		}
		members = append(members, name)
	}
	return NewPool(members...)
}

// Len returns the number of placeholders
func (p Pool) Len() int {
	return len(p.members)
}

// At returns the i-th placeholder
func (p Pool) At(i int) component.Name {
	return p.members[i]
}

// Members returns a copy of the placeholders in order
func (p Pool) Members() []component.Name {
	return slices.Clone(p.members)
}
