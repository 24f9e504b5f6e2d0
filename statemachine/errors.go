package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrTransitionNotFound indicates that no transition matches (state, event).
	ErrTransitionNotFound = errors.New("no valid transition found")
	// ErrGuardRejected indicates that the transition's guard returned false.
	ErrGuardRejected = errors.New("guard rejected transition")
	// ErrInvalidEvent indicates that an event payload failed validation.
	ErrInvalidEvent = errors.New("invalid event payload")
	// ErrNilEvent indicates that a nil event was dispatched.
	ErrNilEvent = errors.New("nil event")
	// ErrActionFailed indicates that an action returned an error or panicked.
	ErrActionFailed = errors.New("action execution failed")
	// ErrActionPanicked indicates that an action panicked.
	ErrActionPanicked = errors.New("action panicked")

	// ErrTransitionFromRequired indicates that a transition from state is required.
	ErrTransitionFromRequired = errors.New("transition from state is required")
	// ErrTransitionEventRequired indicates that a transition event is required.
	ErrTransitionEventRequired = errors.New("transition event is required")
	// ErrTransitionToRequired indicates that a transition to state is required.
	ErrTransitionToRequired = errors.New("transition to state is required")
	// ErrDuplicateTransition indicates two transitions share (from, event).
	ErrDuplicateTransition = errors.New("duplicate transition")
	// ErrInitialStateRequired indicates that an initial state is required.
	ErrInitialStateRequired = errors.New("initial state is required")
	// ErrTableRequired indicates that a transition table is required.
	ErrTableRequired = errors.New("transition table is required")
)

// TransitionError wraps an error with transition context.
type TransitionError struct {
	From  string
	Event string
	Err   error
}

func (e *TransitionError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("transition from %s: %v", e.From, e.Err)
	}

	return fmt.Sprintf("transition %s --%s-->: %v", e.From, e.Event, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError(from, event string, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{
		From:  from,
		Event: event,
		Err:   err,
	}
}

// rejectionReason maps a rejection error to a low-cardinality metric label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrTransitionNotFound):
		return "no_transition"
	case errors.Is(err, ErrGuardRejected):
		return "guard"
	case errors.Is(err, ErrInvalidEvent), errors.Is(err, ErrNilEvent):
		return "invalid_event"
	default:
		return "other"
	}
}
