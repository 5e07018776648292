// Package api
// Author: momentics@gmail.com
//
// Completion values and the generic result carrier.

package api

import "errors"

// Completion is what an asynchronous operation delivers, exactly once.
// N is the byte count for transfers (partial transfers report what moved),
// Value carries operation specific payload such as an accepted handle.
type Completion struct {
	N     int
	Value any
	Err   error
}

// Cancelled reports whether the operation ended by cancellation.
func (c Completion) Cancelled() bool {
	return errors.Is(c.Err, ErrCancelled)
}

// Cancelable is any operation that may be canceled.
type Cancelable interface {
	// Cancel attempts to abort the operation.
	Cancel() error
	// Done signals completion/cancellation.
	Done() <-chan struct{}
	// Err returns the completion error once Done is closed.
	Err() error
}
