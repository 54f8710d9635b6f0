package dashspec

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error codes for dashboard declaration failures.
const (
	ErrCodeCompile        = "E101"
	ErrCodeUnknownHandler = "E506"
)

// CompileError is a declaration error with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s:%d:%d: %s: %s",
			ErrCodeCompile, e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrCodeCompile, e.Field, e.Message)
}

// UnknownHandlerError reports a callback naming a handler absent from the
// catalog.
type UnknownHandlerError struct {
	Callback string
	Handler  string
}

func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("%s: callback %q names unknown handler %q", ErrCodeUnknownHandler, e.Callback, e.Handler)
}

// Code returns the error code of the first dashspec error in err's chain, or "".
func Code(err error) string {
	var (
		ce *CompileError
		uh *UnknownHandlerError
	)
	switch {
	case errors.As(err, &ce):
		return ErrCodeCompile
	case errors.As(err, &uh):
		return ErrCodeUnknownHandler
	}
	return ""
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with position info
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}
