package redirect

import (
	"errors"
	"fmt"

	"kilometers.ai/standin/internal/core/component"
)

var (
	ErrNilPolicy     = errors.New("binding policy cannot be nil")
	ErrBindingFailed = errors.New("binding policy failed")
)

// ErrInvalidBinding creates an error for a policy answer that cannot be launched
func ErrInvalidBinding(logical, physical component.Name) error {
	return fmt.Errorf("%w: %s bound to non-launchable %q", ErrBindingFailed, logical, physical.String())
}

// ConsistencyError reports that the registry tables disagree: a class name
// resolved to a namespace but the binding or descriptor for the resulting
// logical component is missing. It is raised with panic because it can only
// follow a defect in ingestion, never a bad request.
type ConsistencyError struct {
	Logical component.Name
	Table   string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("redirect: registry inconsistent: %s resolved by class name but missing from %s table", e.Logical, e.Table)
}
