package redirect

import (
	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/descriptor"
)

// BindingPolicy assigns a placeholder component to a logical component. The
// registry calls it once per logical component, at ingestion, and caches the
// answer for the rest of its lifetime. Every returned name must be a
// component the host platform has declared ahead of time.
type BindingPolicy interface {
	Bind(logical component.Name) (component.Name, error)
}

// DescriptorBinder is implemented by policies that choose a placeholder from
// the activity's declared metadata, such as its category. The registry
// prefers BindActivity over Bind when a policy offers both.
type DescriptorBinder interface {
	BindActivity(logical component.Name, activity descriptor.Activity) (component.Name, error)
}

// BindingPolicyFunc adapts a function to the BindingPolicy interface
type BindingPolicyFunc func(logical component.Name) (component.Name, error)

// Bind calls f(logical)
func (f BindingPolicyFunc) Bind(logical component.Name) (component.Name, error) {
	return f(logical)
}

func bind(policy BindingPolicy, logical component.Name, activity descriptor.Activity) (component.Name, error) {
	if db, ok := policy.(DescriptorBinder); ok {
		return db.BindActivity(logical, activity)
	}
	return policy.Bind(logical)
}
