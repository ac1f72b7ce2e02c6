// Package redirect implements the component-redirection registry. Plugins
// declare components the host platform has never heard of; the registry binds
// each of them to a placeholder the host did declare, and rewrites launch
// requests so the platform starts the placeholder with enough side payload to
// attach the plugin component afterwards.
package redirect

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/hashicorp/go-hclog"

	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/descriptor"
	"kilometers.ai/standin/internal/core/launch"
	"kilometers.ai/standin/internal/core/ports"
)

// Registry owns the three redirection tables. It is safe for concurrent use:
// ingestion holds the write lock for a whole descriptor set, rewrites share
// the read lock.
type Registry struct {
	mu sync.RWMutex

	// logical component -> placeholder
	containers map[component.Name]component.Name
	// class name -> namespace of the plugin that last declared it
	namespaces map[string]string
	// logical component -> its descriptor
	activities map[component.Name]descriptor.Activity
	// placeholders the policy handed out during an ingestion that failed;
	// invisible to lookups until a later ingestion commits them
	staged map[component.Name]component.Name

	policy   BindingPolicy
	logger   hclog.Logger
	observer Observer
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger; the default discards everything
func WithLogger(logger hclog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the outcome observer
func WithObserver(observer Observer) Option {
	return func(r *Registry) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// NewRegistry creates an empty registry that binds through policy
func NewRegistry(policy BindingPolicy, opts ...Option) (*Registry, error) {
	if policy == nil {
		return nil, ErrNilPolicy
	}

	r := &Registry{
		containers: make(map[component.Name]component.Name),
		namespaces: make(map[string]string),
		activities: make(map[component.Name]descriptor.Activity),
		staged:     make(map[component.Name]component.Name),
		policy:     policy,
		logger:     hclog.NewNullLogger(),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Ingest records every activity of set. Logical components seen for the
// first time are bound through the policy; components already bound keep
// their placeholder and only have their descriptor replaced. A class name
// declared by several plugins resolves to whichever was ingested last.
//
// If the policy fails for any activity nothing from set becomes visible.
// Placeholders already handed out for the other activities are held back and
// reused when the set is ingested again, so the policy is still asked at most
// once per logical component.
func (r *Registry) Ingest(set descriptor.Set) error {
	bound, err := r.ingest(set)
	if err != nil {
		return err
	}

	for _, b := range bound {
		r.logger.Debug("bound logical component", "logical", b.Logical.String(), "physical", b.Physical.String())
		r.observer.Bound(b.Logical, b.Physical)
	}
	r.logger.Trace("ingested descriptor set", "namespace", set.Namespace, "activities", len(set.Activities), "new_bindings", len(bound))
	return nil
}

func (r *Registry) ingest(set descriptor.Set) ([]Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bound []Binding
	pending := make(map[component.Name]component.Name)
	for _, activity := range set.Activities {
		logical := set.Logical(activity)
		if _, ok := r.containers[logical]; ok {
			continue
		}
		if _, ok := pending[logical]; ok {
			continue
		}

		physical, ok := r.staged[logical]
		if !ok {
			var err error
			if physical, err = r.bindNew(logical, activity); err != nil {
				maps.Copy(r.staged, pending)
				return nil, err
			}
		}
		pending[logical] = physical
		bound = append(bound, Binding{Logical: logical, Physical: physical})
	}

	for logical, physical := range pending {
		r.containers[logical] = physical
		delete(r.staged, logical)
	}
	for _, activity := range set.Activities {
		logical := set.Logical(activity)
		r.namespaces[activity.ClassName] = set.Namespace
		r.activities[logical] = activity.Clone()
	}
	return bound, nil
}

func (r *Registry) bindNew(logical component.Name, activity descriptor.Activity) (component.Name, error) {
	physical, err := bind(r.policy, logical, activity)
	if err != nil {
		return component.Name{}, fmt.Errorf("%w for %s: %w", ErrBindingFailed, logical, err)
	}
	if physical.IsZero() || physical.IsPartial() {
		return component.Name{}, ErrInvalidBinding(logical, physical)
	}
	return physical, nil
}

// Rewrite redirects req to the placeholder bound to its target. It reports
// false, leaving req untouched, when req names no component or a class name
// that was never ingested; the caller should then fall back to default
// platform handling.
//
// On success the target of req itself is qualified with the resolved
// namespace, and the returned envelope carries a clone of req aimed at the
// placeholder with the side payload attached under launch.PayloadKey. The
// clone has its own extras map, but extra values are not copied: a nested map
// or slice stored as an extra is shared between req and the rewritten request.
func (r *Registry) Rewrite(req *launch.Request) (launch.Envelope, bool) {
	return r.rewrite(EntryConvert, req)
}

// Launch redirects req and starts the placeholder through launcher. It
// reports false without touching launcher when the request is not a plugin
// component.
func (r *Registry) Launch(ctx context.Context, launcher ports.Launcher, req *launch.Request) (bool, error) {
	env, ok := r.rewrite(EntryLaunch, req)
	if !ok {
		return false, nil
	}
	if err := launcher.Launch(ctx, env.Request); err != nil {
		return true, fmt.Errorf("failed to launch %s in %s: %w", env.Logical, env.Physical(), err)
	}
	return true, nil
}

// LaunchForResult is Launch through the result-aware primitive
func (r *Registry) LaunchForResult(ctx context.Context, delegator ports.ResultLauncher, req *launch.Request, requestCode int) (bool, error) {
	env, ok := r.rewrite(EntryLaunchForResult, req)
	if !ok {
		return false, nil
	}
	if err := delegator.LaunchForResult(ctx, env.Request, requestCode); err != nil {
		return true, fmt.Errorf("failed to launch %s in %s for result %d: %w", env.Logical, env.Physical(), requestCode, err)
	}
	return true, nil
}

// Convert returns the redirected request, or req itself when it is not a
// plugin component. It never launches anything.
func (r *Registry) Convert(req *launch.Request) *launch.Request {
	env, ok := r.rewrite(EntryConvert, req)
	if !ok {
		return req
	}
	return env.Request
}

func (r *Registry) rewrite(entry Entry, req *launch.Request) (launch.Envelope, bool) {
	if !req.HasTarget() {
		r.notHandled(entry, ReasonNoTarget, "")
		return launch.Envelope{}, false
	}
	className := req.Target.ClassName

	r.mu.RLock()
	namespace, ok := r.namespaces[className]
	if !ok {
		r.mu.RUnlock()
		r.notHandled(entry, ReasonUnknownClass, className)
		return launch.Envelope{}, false
	}
	logical := component.Name{Namespace: namespace, ClassName: className}
	physical, hasContainer := r.containers[logical]
	activity, hasActivity := r.activities[logical]
	r.mu.RUnlock()

	if !hasContainer {
		panic(&ConsistencyError{Logical: logical, Table: "container"})
	}
	if !hasActivity {
		panic(&ConsistencyError{Logical: logical, Table: "descriptor"})
	}

	req.SetTarget(logical)

	out := req.Clone()
	out.SetTarget(physical)
	payload := launch.Payload{ClassName: className, Descriptor: activity.Clone()}
	out.PutExtra(launch.PayloadKey, payload)

	r.logger.Trace("rewrote launch request", "entry", string(entry), "logical", logical.String(), "physical", physical.String())
	r.observer.Rewritten(entry, logical, physical)

	return launch.Envelope{Request: out, Logical: logical, Payload: payload}, true
}

func (r *Registry) notHandled(entry Entry, reason Reason, className string) {
	r.logger.Trace("launch request not handled", "entry", string(entry), "reason", string(reason), "class", className)
	r.observer.NotHandled(entry, reason)
}

// Binding is one row of the registry, as reported by Bindings
type Binding struct {
	Logical    component.Name      `json:"logical"`
	Physical   component.Name      `json:"physical"`
	Descriptor descriptor.Activity `json:"descriptor"`

	// Reachable is false when a later plugin declared the same class name,
	// so launches by class name no longer resolve to this component
	Reachable bool `json:"reachable"`
}

// Resolve reports the logical component and placeholder a class name
// currently redirects to
func (r *Registry) Resolve(className string) (logical, physical component.Name, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	namespace, ok := r.namespaces[className]
	if !ok {
		return component.Name{}, component.Name{}, false
	}
	logical = component.Name{Namespace: namespace, ClassName: className}
	physical, ok = r.containers[logical]
	return logical, physical, ok
}

// Lookup returns the placeholder bound to logical. A binding never changes
// once made.
func (r *Registry) Lookup(logical component.Name) (component.Name, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	physical, ok := r.containers[logical]
	return physical, ok
}

// Bindings returns a snapshot of every bound logical component, ordered by
// logical name
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Binding, 0, len(r.containers))
	for logical, physical := range r.containers {
		out = append(out, Binding{
			Logical:    logical,
			Physical:   physical,
			Descriptor: r.activities[logical].Clone(),
			Reachable:  r.namespaces[logical.ClassName] == logical.Namespace,
		})
	}
	slices.SortFunc(out, func(a, b Binding) int {
		return a.Logical.Compare(b.Logical)
	})
	return out
}

// Unreachable lists logical components whose class name has since been
// claimed by another plugin. Their entries are retained, not purged.
func (r *Registry) Unreachable() []component.Name {
	var out []component.Name
	for _, b := range r.Bindings() {
		if !b.Reachable {
			out = append(out, b.Logical)
		}
	}
	return out
}

// Len returns the number of bound logical components
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.containers)
}
