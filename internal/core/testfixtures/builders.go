package testfixtures

import (
	"fmt"

	"kilometers.ai/standin/internal/core/binding"
	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/descriptor"
	"kilometers.ai/standin/internal/core/launch"
	"kilometers.ai/standin/internal/core/redirect"
)

// Common identifiers used across test suites
const (
	HostNamespace   = "com.host.app"
	PluginNamespace = "com.example.plugin"
)

// ContainerA and ContainerB are the placeholders most tests bind to
var (
	ContainerA = component.MustName(HostNamespace, "ContainerActivityA")
	ContainerB = component.MustName(HostNamespace, "ContainerActivityB")
)

// ActivityBuilder provides a builder pattern for creating activity descriptors
type ActivityBuilder struct {
	activity descriptor.Activity
}

// NewActivityBuilder creates a builder with sensible defaults
func NewActivityBuilder(className string) *ActivityBuilder {
	return &ActivityBuilder{activity: descriptor.Activity{
		ClassName:  className,
		Attributes: map[string]string{"label": className},
	}}
}

// WithCategory sets the activity category
func (b *ActivityBuilder) WithCategory(category string) *ActivityBuilder {
	b.activity.Category = category
	return b
}

// WithAttribute sets one opaque attribute
func (b *ActivityBuilder) WithAttribute(key, value string) *ActivityBuilder {
	if b.activity.Attributes == nil {
		b.activity.Attributes = make(map[string]string)
	}
	b.activity.Attributes[key] = value
	return b
}

// Build returns the activity
func (b *ActivityBuilder) Build() descriptor.Activity {
	return b.activity.Clone()
}

// SetBuilder provides a builder pattern for creating descriptor sets
type SetBuilder struct {
	set descriptor.Set
}

// NewSetBuilder creates a builder for namespace
func NewSetBuilder(namespace string) *SetBuilder {
	return &SetBuilder{set: descriptor.Set{Namespace: namespace}}
}

// WithActivity appends an activity
func (b *SetBuilder) WithActivity(activity descriptor.Activity) *SetBuilder {
	b.set.Activities = append(b.set.Activities, activity)
	return b
}

// WithActivities appends default activities for each class name
func (b *SetBuilder) WithActivities(classNames ...string) *SetBuilder {
	for _, c := range classNames {
		b.WithActivity(NewActivityBuilder(c).Build())
	}
	return b
}

// WithGeneratedActivities appends count activities named Activity0..N
func (b *SetBuilder) WithGeneratedActivities(count int) *SetBuilder {
	for i := 0; i < count; i++ {
		b.WithActivity(NewActivityBuilder(fmt.Sprintf("Activity%d", i)).Build())
	}
	return b
}

// Build returns the descriptor set
func (b *SetBuilder) Build() descriptor.Set {
	out := descriptor.Set{Namespace: b.set.Namespace}
	for _, a := range b.set.Activities {
		out.Activities = append(out.Activities, a.Clone())
	}
	return out
}

// RequestBuilder provides a builder pattern for creating launch requests
type RequestBuilder struct {
	req *launch.Request
}

// NewRequestBuilder creates a request addressed by class name only
func NewRequestBuilder(className string) *RequestBuilder {
	return &RequestBuilder{req: launch.NewRequest(component.ClassOnly(className))}
}

// NewUntargetedRequestBuilder creates a request without a component
func NewUntargetedRequestBuilder(action string) *RequestBuilder {
	return &RequestBuilder{req: &launch.Request{Action: action}}
}

// WithTarget sets a fully qualified target
func (b *RequestBuilder) WithTarget(target component.Name) *RequestBuilder {
	b.req.SetTarget(target)
	return b
}

// WithExtra sets one extra
func (b *RequestBuilder) WithExtra(key string, value any) *RequestBuilder {
	b.req.PutExtra(key, value)
	return b
}

// Build returns the request
func (b *RequestBuilder) Build() *launch.Request {
	return b.req.Clone()
}

// NewRegistry creates a round-robin registry over ContainerA and ContainerB
// and ingests sets into it
func NewRegistry(sets ...descriptor.Set) (*redirect.Registry, error) {
	pool, err := binding.NewPool(ContainerA, ContainerB)
	if err != nil {
		return nil, err
	}
	policy, err := binding.NewRoundRobin(pool)
	if err != nil {
		return nil, err
	}
	registry, err := redirect.NewRegistry(policy)
	if err != nil {
		return nil, err
	}
	for _, s := range sets {
		if err := registry.Ingest(s); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
