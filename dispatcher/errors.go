package dispatcher

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidIntent      = errors.New("invalid intent")
	ErrUnresolvedBinding  = errors.New("unresolved binding")
	ErrSubmissionRejected = errors.New("submission rejected")
)

// DispatchError is returned by every failed dispatch. Kind is one of the
// Err* sentinels above; errors.Is matches both Kind and Cause.
type DispatchError struct {
	Kind    error
	Network string
	Gateway string
	Detail  string
	Cause   error
}

func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("dispatch on network %q via gateway %q: %s", e.Network, e.Gateway, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DispatchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
