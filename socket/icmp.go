// File: socket/icmp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ICMP sockets in datagram mode. The kernel owns the echo identifier and
// the checksum; payloads are opaque to the socket.

package socket

import (
	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ip"
	"github.com/momentics/hioload-aio/reactor"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// ICMPSocket is an unprivileged ping socket.
type ICMPSocket struct {
	datagram[ip.ICMP]
}

// NewICMPSocket returns an unopened socket bound to r.
func NewICMPSocket(r *reactor.Reactor) *ICMPSocket {
	s := &ICMPSocket{}
	s.init(r)
	return s
}

// EchoRequest marshals an echo request for family f.
func EchoRequest(f ip.Family, id, seq int, payload []byte) ([]byte, error) {
	var typ icmp.Type = ipv4.ICMPTypeEcho
	if f == ip.FamilyV6 {
		typ = ipv6.ICMPTypeEchoRequest
	}
	m := icmp.Message{
		Type: typ,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: payload},
	}
	b, err := m.Marshal(nil)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeInvalidValue, "echo_request", err)
	}
	return b, nil
}

// ParseEchoReply decodes an echo reply received on an ICMP socket of
// family f.
func ParseEchoReply(f ip.Family, b []byte) (*icmp.Echo, error) {
	proto, want := ip.ICMPv4().Number(), icmp.Type(ipv4.ICMPTypeEchoReply)
	if f == ip.FamilyV6 {
		proto, want = ip.ICMPv6().Number(), ipv6.ICMPTypeEchoReply
	}
	m, err := icmp.ParseMessage(proto, b)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeInvalidValue, "echo_reply", err)
	}
	echo, ok := m.Body.(*icmp.Echo)
	if !ok || m.Type != want {
		return nil, api.NewError(api.ErrCodeInvalidValue, "not an echo reply").WithContext("type", m.Type)
	}
	return echo, nil
}
