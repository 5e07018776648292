// File: sockopt/option.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package sockopt applies typed socket options to open handles. Each option
// value knows its level and name for a given protocol, how to encode and
// decode itself and which protocols accept it. Options are applied to the
// OS immediately; incompatible option and protocol pairs are rejected
// before any system call.
package sockopt

import (
	"fmt"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/transport"
	"github.com/momentics/hioload-aio/ip"
)

// Handle is an open socket an option can be applied to.
type Handle interface {
	NativeHandle() int
	Descriptor() ip.Descriptor
}

// Option is a settable socket option value.
type Option interface {
	// Key returns the level and name used for protocol d.
	Key(d ip.Descriptor) (level, name int)
	// Supports reports whether the option applies to protocol d.
	Supports(d ip.Descriptor) bool

	validate(d ip.Descriptor) error
	set(fd int, d ip.Descriptor) error
}

// Getter is an option whose current value can be read back into itself.
// Getters are pointers to option values.
type Getter interface {
	Option
	get(fd int, d ip.Descriptor) error
}

// Set validates opt and applies it to h.
func Set(h Handle, opt Option) error {
	fd, d, err := prepare("setsockopt", h, opt)
	if err != nil {
		return err
	}
	if err := opt.validate(d); err != nil {
		return err
	}
	return transport.Wrap("setsockopt", opt.set(fd, d))
}

// Get reads the current value of opt from h.
func Get(h Handle, opt Getter) error {
	fd, d, err := prepare("getsockopt", h, opt)
	if err != nil {
		return err
	}
	return transport.Wrap("getsockopt", opt.get(fd, d))
}

func prepare(op string, h Handle, opt Option) (int, ip.Descriptor, error) {
	d := h.Descriptor()
	if !opt.Supports(d) {
		return -1, d, api.Wrap(api.ErrCodeUnsupportedOption, op, nil).
			WithContext("option", optionName(opt)).
			WithContext("protocol", d.String())
	}
	fd := h.NativeHandle()
	if err := transport.CheckOpen(op, fd); err != nil {
		return -1, d, err
	}
	return fd, d, nil
}

func invalid(opt Option, reason string) error {
	e := api.Wrap(api.ErrCodeInvalidValue, "setsockopt", nil).WithContext("option", optionName(opt))
	e.Message = reason
	return e
}

func optionName(opt Option) string {
	return fmt.Sprintf("%T", opt)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func setInt(fd int, d ip.Descriptor, opt Option, v int) error {
	level, name := opt.Key(d)
	return transport.SetsockoptInt(fd, level, name, v)
}

func getInt(fd int, d ip.Descriptor, opt Option) (int, error) {
	level, name := opt.Key(d)
	return transport.GetsockoptInt(fd, level, name)
}

func anyProtocol(ip.Descriptor) bool { return true }

func isKind(d ip.Descriptor, k ip.Kind) bool { return d.Kind() == k }

func byFamily(d ip.Descriptor, v4, v6 int) int {
	if d.Family() == ip.FamilyV6 {
		return v6
	}
	return v4
}
