//go:build linux
// +build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"context"
	"errors"

	"github.com/momentics/hioload-aio/api"
	"golang.org/x/sys/unix"
)

// classify maps errno values onto the api taxonomy.
func classify(err error) api.ErrorCode {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return api.ErrCodeCancelled
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return api.ErrCodeOS
	}
	switch errno {
	case unix.EADDRINUSE:
		return api.ErrCodeAddressInUse
	case unix.ECANCELED:
		return api.ErrCodeCancelled
	case unix.ENOPROTOOPT:
		return api.ErrCodeUnsupportedOption
	case unix.EMFILE, unix.ENFILE, unix.ENOBUFS, unix.ENOMEM:
		return api.ErrCodeResourceExhausted
	case unix.EAFNOSUPPORT, unix.EPROTONOSUPPORT, unix.EOPNOTSUPP:
		return api.ErrCodeNotSupported
	case unix.EBADF:
		return api.ErrCodeClosed
	case unix.ENOTCONN, unix.EISCONN:
		return api.ErrCodeInvalidState
	default:
		return api.ErrCodeOS
	}
}
