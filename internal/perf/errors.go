package perf

import (
	"errors"
	"fmt"
)

var (
	// ErrNilDocument indicates a coordinator was created without a document.
	ErrNilDocument = errors.New("nil document")

	// ErrMissingPort indicates a required capability port was not supplied.
	ErrMissingPort = errors.New("missing port")

	// ErrInvalidOptions indicates a selector, shortcut or threshold that cannot be used.
	ErrInvalidOptions = errors.New("invalid options")
)

// ComponentError reports a construction failure in one coordinator part.
type ComponentError struct {
	Component string // "coordinator", "visibility", "layout", "touch", "shortcuts"
	Action    string
	Err       error
}

func newComponentError(component, action string, err error) *ComponentError {
	return &ComponentError{Component: component, Action: action, Err: err}
}

func (e *ComponentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Action != "" {
		return fmt.Sprintf("perf: %s: %s: %v", e.Component, e.Action, e.Err)
	}
	return fmt.Sprintf("perf: %s: %v", e.Component, e.Err)
}

func (e *ComponentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
