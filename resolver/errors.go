// File: resolver/errors.go
// Author: momentics <momentics@gmail.com>

package resolver

import (
	"context"
	"errors"
	"net"

	"github.com/momentics/hioload-aio/api"
)

// ResolutionError is returned when a query yields nothing. It matches
// api.ErrResolution.
type ResolutionError = api.ResolutionError

// Kind values of ResolutionError.
const (
	NotFound  = api.ResolutionNotFound
	Timeout   = api.ResolutionTimeout
	Transport = api.ResolutionTransport
)

func notFound(q Query, err error) error {
	return &ResolutionError{Kind: NotFound, Query: q.String(), Err: err}
}

// classify turns a backend failure into a ResolutionError.
func classify(q Query, err error) error {
	var re *ResolutionError
	if errors.As(err, &re) {
		return err
	}
	kind := Transport
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = Timeout
	case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
		kind = NotFound
	case errors.As(err, &dnsErr) && dnsErr.IsTimeout:
		kind = Timeout
	}
	return &ResolutionError{Kind: kind, Query: q.String(), Err: err}
}
