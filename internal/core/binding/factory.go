package binding

import (
	"fmt"

	"kilometers.ai/standin/internal/core/redirect"
)

// Spec describes a stock policy as it appears in configuration
type Spec struct {
	Kind Kind

	// HostNamespace qualifies placeholders written by class name only
	HostNamespace string

	// Containers is the pool for round_robin and hashed, and the fallback
	// pool for partitioned
	Containers []string

	// Partitions maps an activity category to its pool (partitioned only)
	Partitions map[string][]string
}

// New builds the policy described by spec
func New(spec Spec) (redirect.BindingPolicy, error) {
	var shared Pool
	if len(spec.Containers) > 0 {
		pool, err := ParsePool(spec.HostNamespace, spec.Containers)
		if err != nil {
			return nil, err
		}
		shared = pool
	}

	switch spec.Kind {
	case KindRoundRobin, "":
		policy, err := NewRoundRobin(shared)
		if err != nil {
			return nil, err
		}
		return policy, nil
	case KindHashed:
		policy, err := NewHashed(shared)
		if err != nil {
			return nil, err
		}
		return policy, nil
	case KindPartitioned:
		pools := make(map[string]Pool, len(spec.Partitions))
		for category, entries := range spec.Partitions {
			pool, err := ParsePool(spec.HostNamespace, entries)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", category, err)
			}
			pools[category] = pool
		}
		policy, err := NewPartitioned(pools, shared)
		if err != nil {
			return nil, err
		}
		return policy, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
}
