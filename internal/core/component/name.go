package component

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
)

// Separator joins namespace and class name in the text form of a Name.
const Separator = "/"

var (
	ErrEmptyClassName = errors.New("component class name cannot be empty")
	ErrEmptyNamespace = errors.New("component namespace cannot be empty")
)

// Name is a value object identifying a component by the namespace that owns
// it and its class name within that namespace. Two names are equal when both
// parts are equal, so Name is safe to use as a map key.
//
// A Name with an empty namespace is partial: callers address plugin components
// by class name alone before the owning namespace is known.
type Name struct {
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	ClassName string `json:"class_name" yaml:"class_name"`
}

// NewName creates a fully qualified Name with validation
func NewName(namespace, className string) (Name, error) {
	if namespace == "" {
		return Name{}, ErrEmptyNamespace
	}
	if className == "" {
		return Name{}, ErrEmptyClassName
	}
	return Name{Namespace: namespace, ClassName: className}, nil
}

// MustName is NewName for static identifiers; it panics on invalid input.
func MustName(namespace, className string) Name {
	n, err := NewName(namespace, className)
	if err != nil {
		panic(err)
	}
	return n
}

// ClassOnly creates a partial Name carrying only a class name
func ClassOnly(className string) Name {
	return Name{ClassName: className}
}

// Parse reads the text form produced by String. A value without a separator
// yields a partial Name. The class name is everything after the first
// separator.
func Parse(value string) (Name, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Name{}, ErrEmptyClassName
	}

	namespace, className, found := strings.Cut(value, Separator)
	if !found {
		return ClassOnly(value), nil
	}
	if namespace == "" {
		return Name{}, fmt.Errorf("invalid component %q: %w", value, ErrEmptyNamespace)
	}
	if className == "" {
		return Name{}, fmt.Errorf("invalid component %q: %w", value, ErrEmptyClassName)
	}
	return Name{Namespace: namespace, ClassName: className}, nil
}

// IsZero reports whether n carries no class name at all
func (n Name) IsZero() bool {
	return n.ClassName == ""
}

// IsPartial reports whether n lacks a namespace
func (n Name) IsPartial() bool {
	return n.Namespace == ""
}

// WithNamespace returns a copy of n qualified by namespace
func (n Name) WithNamespace(namespace string) Name {
	return Name{Namespace: namespace, ClassName: n.ClassName}
}

// String implements the Stringer interface
func (n Name) String() string {
	if n.Namespace == "" {
		return n.ClassName
	}
	return n.Namespace + Separator + n.ClassName
}

// Compare orders names by namespace, then class name
func (n Name) Compare(other Name) int {
	if c := cmp.Compare(n.Namespace, other.Namespace); c != 0 {
		return c
	}
	return cmp.Compare(n.ClassName, other.ClassName)
}
