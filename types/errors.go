package types

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a run is started on an engine that is still busy
var ErrRunInProgress = errors.New("a run is already in progress on this engine")

// NotFoundError reports a scan or source root that does not exist
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directory not found: %s (%v)", e.Path, e.Err)
	}
	return fmt.Sprintf("directory not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ValidationError reports an invalid run parameter
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
