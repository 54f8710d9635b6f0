package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/wavedash/internal/registry"
)

// Error codes for graph construction failures.
const (
	ErrCodeDuplicateOutput  = "E501"
	ErrCodeUnknownProperty  = "E502"
	ErrCodeCyclicDependency = "E503"
	ErrCodeGraphSealed      = "E504"
	ErrCodeInvalidCallback  = "E505"
)

// DuplicateOutputOwnershipError reports an output already owned by another
// callback.
type DuplicateOutputOwnershipError struct {
	Ref      registry.Ref
	Owner    string
	Callback string
}

func (e *DuplicateOutputOwnershipError) Error() string {
	return fmt.Sprintf("%s: callback %q declares output %s already owned by %q",
		ErrCodeDuplicateOutput, e.Callback, e.Ref, e.Owner)
}

// UnknownPropertyError reports a callback referencing an unregistered
// component property.
type UnknownPropertyError struct {
	Callback string
	Role     string // "output", "trigger" or "state"
	Ref      registry.Ref
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("%s: callback %q %s %s is not a registered property",
		ErrCodeUnknownProperty, e.Callback, e.Role, e.Ref)
}

// CyclicDependencyError reports one dependency cycle. Cycle lists callback
// ids and ends where it starts.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("%s: dependency cycle: %s", ErrCodeCyclicDependency, strings.Join(e.Cycle, " -> "))
}

// GraphSealedError reports a mutation of a built graph.
type GraphSealedError struct {
	Op string
}

func (e *GraphSealedError) Error() string {
	return fmt.Sprintf("%s: graph is sealed: %s not allowed after build", ErrCodeGraphSealed, e.Op)
}

// InvalidCallbackError reports a malformed callback declaration.
type InvalidCallbackError struct {
	Callback string
	Message  string
}

func (e *InvalidCallbackError) Error() string {
	return fmt.Sprintf("%s: callback %q: %s", ErrCodeInvalidCallback, e.Callback, e.Message)
}

// Code returns the error code of the first graph error in err's chain, or "".
func Code(err error) string {
	var (
		dup    *DuplicateOutputOwnershipError
		up     *UnknownPropertyError
		cyc    *CyclicDependencyError
		sealed *GraphSealedError
		inv    *InvalidCallbackError
	)
	switch {
	case errors.As(err, &dup):
		return ErrCodeDuplicateOutput
	case errors.As(err, &up):
		return ErrCodeUnknownProperty
	case errors.As(err, &cyc):
		return ErrCodeCyclicDependency
	case errors.As(err, &sealed):
		return ErrCodeGraphSealed
	case errors.As(err, &inv):
		return ErrCodeInvalidCallback
	}
	return ""
}
