// File: internal/transport/transport.go
// Author: momentics <momentics@gmail.com>
//
// Platform-independent declarations of the OS transport.

package transport

import (
	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ip"
)

// ShutdownHow selects which half of a connection Shutdown closes.
type ShutdownHow int

const (
	ShutdownRead ShutdownHow = iota
	ShutdownWrite
	ShutdownBoth
)

// Peer is a decoded socket address.
type Peer struct {
	Addr ip.Addr
	Port uint16
}

// Features advertises what the running platform transport can do.
type Features struct {
	Supported   bool
	EdgePolling bool
	PingSockets bool
	OS          string
}

// Wrap classifies err into the api error taxonomy, tagging it with op.
// Errors that already carry a code pass through unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*api.Error); ok {
		return err
	}
	return api.Wrap(classify(err), op, err)
}

// CheckOpen rejects negative handles before they reach a syscall.
func CheckOpen(op string, fd int) error {
	if fd < 0 {
		return api.Wrap(api.ErrCodeClosed, op, nil)
	}
	return nil
}
