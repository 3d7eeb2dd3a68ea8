package lifecycle

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the addressed record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InvalidTransitionError is returned when an action is not permitted from the
// record's current status.
type InvalidTransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %q", e.Action, e.Entity, e.From)
}

// AuthorizationError is returned when the actor is not the party allowed to
// perform the action.
type AuthorizationError struct {
	ActorID string
	Action  string
}

func (e *AuthorizationError) Error() string {
	if e.ActorID == "" {
		return fmt.Sprintf("not allowed to %s", e.Action)
	}
	return fmt.Sprintf("user %s is not allowed to %s", e.ActorID, e.Action)
}

// RemoteError wraps a failure of a collaborator such as the store, the payment
// gateway or the object store.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Remote wraps err as a RemoteError unless it already is a domain error, in which
// case it is returned untouched.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		te *InvalidTransitionError
		ae *AuthorizationError
		re *RemoteError
	)
	if errors.Is(err, ErrNotFound) || errors.As(err, &ve) || errors.As(err, &te) ||
		errors.As(err, &ae) || errors.As(err, &re) {
		return err
	}
	return &RemoteError{Op: op, Err: err}
}
