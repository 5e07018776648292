// File: socket/udp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"sync"

	"github.com/momentics/hioload-aio/ip"
	"github.com/momentics/hioload-aio/reactor"
	"github.com/momentics/hioload-aio/sockopt"
)

type membership struct {
	group   ip.Addr
	ifindex int
}

// UDPSocket is a datagram socket that tracks its multicast memberships.
type UDPSocket struct {
	datagram[ip.UDP]

	gmu    sync.Mutex
	groups map[membership]struct{}
}

// NewUDPSocket returns an unopened socket bound to r.
func NewUDPSocket(r *reactor.Reactor) *UDPSocket {
	s := &UDPSocket{groups: make(map[membership]struct{})}
	s.init(r)
	return s
}

// BindUDP opens a socket and binds it to ep.
func BindUDP(r *reactor.Reactor, ep ip.UDPEndpoint) (*UDPSocket, error) {
	s := NewUDPSocket(r)
	if err := s.Bind(ep); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// SetOption applies opt and records successful multicast joins and leaves.
func (s *UDPSocket) SetOption(opt sockopt.Option) error {
	if err := s.datagram.SetOption(opt); err != nil {
		return err
	}
	s.gmu.Lock()
	defer s.gmu.Unlock()
	switch o := opt.(type) {
	case sockopt.MulticastJoinGroup:
		s.joined(o.Group, o.Interface, true)
	case *sockopt.MulticastJoinGroup:
		s.joined(o.Group, o.Interface, true)
	case sockopt.MulticastLeaveGroup:
		s.joined(o.Group, o.Interface, false)
	case *sockopt.MulticastLeaveGroup:
		s.joined(o.Group, o.Interface, false)
	}
	return nil
}

// joined records a membership change. Caller holds gmu.
func (s *UDPSocket) joined(group ip.Addr, ifindex int, join bool) {
	m := membership{group, ifindex}
	if join {
		s.groups[m] = struct{}{}
	} else {
		delete(s.groups, m)
	}
}

// IsMember reports whether the socket joined group on any interface.
func (s *UDPSocket) IsMember(group ip.Addr) bool {
	s.gmu.Lock()
	defer s.gmu.Unlock()
	for m := range s.groups {
		if m.group == group {
			return true
		}
	}
	return false
}

// Close drops the membership set and closes the socket.
func (s *UDPSocket) Close() error {
	s.gmu.Lock()
	clear(s.groups)
	s.gmu.Unlock()
	return s.datagram.Close()
}
