package dispatch

import (
	"errors"
	"fmt"
)

// ErrCodeHandlerExecution identifies a failed handler execution.
const ErrCodeHandlerExecution = "E601"

var (
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("dispatcher stopped")

	// ErrQueueFull is returned by Submit when accepting the changes would
	// exceed the pending-property limit.
	ErrQueueFull = errors.New("change queue full")

	// ErrGraphNotSealed is returned by New for a graph that was never built.
	ErrGraphNotSealed = errors.New("callback graph is not built")
)

// HandlerExecutionError reports one callback's failure within a wave. The
// callback's outputs keep their pre-wave values.
type HandlerExecutionError struct {
	CallbackID string
	Err        error
	Panic      bool
}

func (e *HandlerExecutionError) Error() string {
	if e.Panic {
		return fmt.Sprintf("%s: callback %q panicked: %v", ErrCodeHandlerExecution, e.CallbackID, e.Err)
	}
	return fmt.Sprintf("%s: callback %q failed: %v", ErrCodeHandlerExecution, e.CallbackID, e.Err)
}

func (e *HandlerExecutionError) Unwrap() error {
	return e.Err
}

// IsHandlerError reports whether err is (or wraps) a HandlerExecutionError.
func IsHandlerError(err error) bool {
	var he *HandlerExecutionError
	return errors.As(err, &he)
}
