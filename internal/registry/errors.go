package registry

import (
	"errors"
	"fmt"

	"github.com/roach88/wavedash/internal/value"
)

// Error codes for registry failures.
const (
	ErrCodeDuplicateComponent = "E401"
	ErrCodeNotFound           = "E402"
	ErrCodePropertyType       = "E403"
)

// DuplicateComponentError reports a component id registered twice.
type DuplicateComponentError struct {
	Component string
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("%s: component %q already registered", ErrCodeDuplicateComponent, e.Component)
}

// NotFoundError reports an unregistered component or property.
type NotFoundError struct {
	Ref Ref
}

func (e *NotFoundError) Error() string {
	if e.Ref.Property == "" {
		return fmt.Sprintf("%s: component %q not registered", ErrCodeNotFound, e.Ref.Component)
	}
	return fmt.Sprintf("%s: property %s not registered", ErrCodeNotFound, e.Ref)
}

// PropertyTypeError reports a value whose kind the property does not accept.
type PropertyTypeError struct {
	Ref      Ref
	Declared value.Kind
	Got      value.Kind
}

func (e *PropertyTypeError) Error() string {
	return fmt.Sprintf("%s: property %s declared %s, got %s", ErrCodePropertyType, e.Ref, e.Declared, e.Got)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Code returns the error code of the first registry error in err's chain, or "".
func Code(err error) string {
	var (
		dup *DuplicateComponentError
		nf  *NotFoundError
		pt  *PropertyTypeError
	)
	switch {
	case errors.As(err, &dup):
		return ErrCodeDuplicateComponent
	case errors.As(err, &nf):
		return ErrCodeNotFound
	case errors.As(err, &pt):
		return ErrCodePropertyType
	}
	return ""
}
