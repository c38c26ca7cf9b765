package provider

import (
	"errors"
	"fmt"
)

// ErrProviderFailure marks a provider call that did not yield the expected
// data, either because the API was unreachable or because the response
// lacked the expected members.
var ErrProviderFailure = errors.New("provider failure")

// Error describes which provider call failed and why.
type Error struct {
	World  string
	Action string
	Reason string
	Err    error // transport cause, if any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s on world %s: %s", ErrProviderFailure, e.Action, e.World, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets callers match both ErrProviderFailure and the transport cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProviderFailure}
	}
	return []error{ErrProviderFailure, e.Err}
}

func failure(world, action, format string, args ...any) *Error {
	return &Error{World: world, Action: action, Reason: fmt.Sprintf(format, args...)}
}
