package generate

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendRequired is returned when a client is built without a backend.
	ErrBackendRequired = errors.New("generation backend required")

	// ErrInvalidRequest indicates an unknown task or an out-of-range parameter.
	ErrInvalidRequest = errors.New("invalid generation request")
)

// Generation error kinds. Match them with errors.Is.
var (
	ErrBackendFailure = errors.New("generation backend failure")
	ErrParseFailure   = errors.New("generation parse failure")
)

// GenerationError reports a failed generation call. Raw holds the model output
// when the failure happened while parsing it.
type GenerationError struct {
	Kind error
	Task Task
	Raw  string
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", e.Kind, e.Task)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Task, e.Err)
}

// Unwrap exposes both the kind and the cause.
func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
