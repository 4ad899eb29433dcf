package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/nbenliogludev/survey-agent/internal/browser"
)

// ErrControlNotFound is returned when a control a handler depends on is not
// on the page.
var ErrControlNotFound = errors.New("expected control not found")

// ParseError means the reasoning response did not reduce to an integer.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse decision from response %q: %v", e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidSelectionError means the decision is not an index of the current
// inventory.
type InvalidSelectionError struct {
	Index int
	Size  int
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection %d: inventory has %d elements", e.Index, e.Size)
}

// HandlerError reports which step of a specialized handler failed.
type HandlerError struct {
	Step string
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler step %q failed: %v", e.Step, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// NetworkTimeout is a navigation, load, snapshot, activation, settle or
// reasoning wait that exceeded its bound.
type NetworkTimeout struct {
	Op  string
	Err error
}

func (e *NetworkTimeout) Error() string {
	return fmt.Sprintf("timeout during %s: %v", e.Op, e.Err)
}

func (e *NetworkTimeout) Unwrap() error { return e.Err }

// ActionError is a browser failure that was not a timeout.
type ActionError struct {
	Op  string
	Err error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// ReasoningError is a reasoning-service failure that was not a timeout.
type ReasoningError struct {
	Err error
}

func (e *ReasoningError) Error() string {
	return fmt.Sprintf("reasoning service failed: %v", e.Err)
}

func (e *ReasoningError) Unwrap() error { return e.Err }

// browserErr classifies a driver error for op.
func browserErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTimeout(err) {
		return &NetworkTimeout{Op: op, Err: err}
	}
	return &ActionError{Op: op, Err: err}
}

func isTimeout(err error) bool {
	return errors.Is(err, browser.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
