// File: ip/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Endpoint = (address, port) bound to a protocol of the same family.

package ip

import (
	"net"
	"net/netip"
	"strconv"

	"github.com/momentics/hioload-aio/api"
)

// Endpoint is an address and port valid for protocol P. An endpoint never
// carries a protocol whose family differs from its address family.
type Endpoint[P Protocol[P]] struct {
	proto P
	addr  Addr
	port  uint16
}

type (
	TCPEndpoint  = Endpoint[TCP]
	UDPEndpoint  = Endpoint[UDP]
	ICMPEndpoint = Endpoint[ICMP]
)

// NewEndpoint builds an endpoint for p. It fails with ProtocolMismatch when
// addr belongs to another family.
func NewEndpoint[P Protocol[P]](p P, addr Addr, port uint16) (Endpoint[P], error) {
	if !addr.IsValid() {
		return Endpoint[P]{}, api.NewError(api.ErrCodeInvalidValue, "endpoint address is invalid")
	}
	if p.Family() != addr.Family() {
		return Endpoint[P]{}, mismatch("endpoint", p, addr)
	}
	return Endpoint[P]{proto: p, addr: addr, port: port}, nil
}

// EndpointOf derives the protocol family from addr, so it cannot mismatch.
func EndpointOf[P Protocol[P]](addr Addr, port uint16) Endpoint[P] {
	var p P
	return Endpoint[P]{proto: p.ForFamily(addr.Family()), addr: addr, port: port}
}

// ParseEndpoint parses "host:port" where host is a numeric address
// ("1.2.3.4:80", "[::1]:80", "[fe80::1%eth0]:80").
func ParseEndpoint[P Protocol[P]](s string) (Endpoint[P], error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return Endpoint[P]{}, &AddrParseError{Input: s, Err: err}
	}
	return EndpointOf[P](AddrFrom(ap.Addr()), ap.Port()), nil
}

// Protocol returns the protocol descriptor the endpoint is valid for.
func (e Endpoint[P]) Protocol() P { return e.proto }

// Addr returns the address part.
func (e Endpoint[P]) Addr() Addr { return e.addr }

// Port returns the port part.
func (e Endpoint[P]) Port() uint16 { return e.port }

// IsValid reports whether the endpoint has an address.
func (e Endpoint[P]) IsValid() bool { return e.addr.IsValid() }

// WithPort returns a copy with the port replaced.
func (e Endpoint[P]) WithPort(port uint16) Endpoint[P] {
	e.port = port
	return e
}

// AddrPort converts to netip.AddrPort.
func (e Endpoint[P]) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(e.addr.Netip(), e.port)
}

// Network implements net.Addr.
func (e Endpoint[P]) Network() string { return e.proto.String() }

// String implements net.Addr.
func (e Endpoint[P]) String() string {
	if !e.addr.IsValid() {
		return "invalid endpoint"
	}
	return net.JoinHostPort(e.addr.Netip().String(), strconv.Itoa(int(e.port)))
}

// Compare orders by address, then port.
func (e Endpoint[P]) Compare(o Endpoint[P]) int {
	if c := e.addr.Compare(o.addr); c != 0 {
		return c
	}
	switch {
	case e.port < o.port:
		return -1
	case e.port > o.port:
		return 1
	}
	return 0
}

// CheckFamily verifies that addr can be used with protocol d.
func CheckFamily(op string, d Descriptor, addr Addr) error {
	if d.Family() != addr.Family() {
		return mismatch(op, d, addr)
	}
	return nil
}

func mismatch(op string, d Descriptor, addr Addr) error {
	return api.Wrap(api.ErrCodeProtocolMismatch, op, nil).
		WithContext("protocol", d.String()).
		WithContext("address", addr.String())
}
