package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindConfiguration covers missing or unreadable inputs and invalid
	// output locations. Raised before any stage runs.
	KindConfiguration Kind = "configuration"
	// KindStage means a stage rejected its input.
	KindStage Kind = "stage"
	// KindWrite means persisting the stylesheet or generated bindings failed.
	KindWrite Kind = "write"
)

// Error is the single error type surfaced to the driver's caller.
type Error struct {
	Kind  Kind
	Stage string // empty for configuration errors
	Err   error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s error in stage %q: %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConfigError wraps err as a configuration error.
func ConfigError(err error) *Error {
	return &Error{Kind: KindConfiguration, Err: err}
}

// ConfigErrorf formats a configuration error.
func ConfigErrorf(format string, args ...any) *Error {
	return ConfigError(fmt.Errorf(format, args...))
}

// StageError wraps err as a failure of the named stage.
func StageError(stage string, err error) *Error {
	return &Error{Kind: KindStage, Stage: stage, Err: err}
}

// WriteError wraps err as a persistence failure. stage may be empty when the
// driver's own write fails.
func WriteError(stage string, err error) *Error {
	return &Error{Kind: KindWrite, Stage: stage, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StageOf returns the stage named by err, or "".
func StageOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}

// attribute tags err with stage. Existing kinds are kept so that a write
// failure reported by a stage stays a write failure.
func attribute(stage string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Stage != "" {
			return pe
		}
		return &Error{Kind: pe.Kind, Stage: stage, Err: pe.Err}
	}
	return StageError(stage, err)
}
