// Package descriptor holds the metadata a plugin declares about its launchable
// components. Descriptors are produced by a manifest parser and consumed by the
// redirection registry; the registry treats everything beyond the class name
// and category as opaque.
package descriptor

import (
	"errors"
	"fmt"
	"maps"

	"kilometers.ai/standin/internal/core/component"
)

// DefaultCategory is assumed for activities that declare no category
const DefaultCategory = "standard"

var (
	ErrEmptyNamespace = errors.New("descriptor set namespace cannot be empty")
	ErrEmptyClassName = errors.New("activity descriptor class name cannot be empty")
)

// Activity describes one logical component
type Activity struct {
	ClassName string `json:"class_name" yaml:"class_name"`

	// Category groups activities that share a kind of placeholder, e.g. a
	// launch mode or a theme. Empty means DefaultCategory.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Attributes are carried to the placeholder untouched
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// EffectiveCategory returns the declared category or DefaultCategory
func (a Activity) EffectiveCategory() string {
	if a.Category == "" {
		return DefaultCategory
	}
	return a.Category
}

// Clone returns a copy of a that shares no mutable state with it
func (a Activity) Clone() Activity {
	out := a
	if a.Attributes != nil {
		out.Attributes = maps.Clone(a.Attributes)
	}
	return out
}

// Equal reports whether a and other describe the same activity
func (a Activity) Equal(other Activity) bool {
	return a.ClassName == other.ClassName &&
		a.EffectiveCategory() == other.EffectiveCategory() &&
		maps.Equal(a.Attributes, other.Attributes)
}

// Set is the unit of ingestion: every activity a single plugin declares
type Set struct {
	Namespace  string     `json:"namespace" yaml:"namespace"`
	Activities []Activity `json:"activities" yaml:"activities"`
}

// Logical returns the logical component name of activity a within the set
func (s Set) Logical(a Activity) component.Name {
	return component.Name{Namespace: s.Namespace, ClassName: a.ClassName}
}

// Validate rejects sets the registry could not build identifiers from. The
// registry itself never calls this; manifest loaders do before ingestion.
func (s Set) Validate() error {
	if s.Namespace == "" {
		return ErrEmptyNamespace
	}
	for i, a := range s.Activities {
		if a.ClassName == "" {
			return fmt.Errorf("activity %d in %s: %w", i, s.Namespace, ErrEmptyClassName)
		}
	}
	return nil
}
