// File: sockopt/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Option catalogue.

package sockopt

import (
	"math"
	"time"

	"github.com/momentics/hioload-aio/internal/transport"
	"github.com/momentics/hioload-aio/ip"
)

// ReuseAddr allows binding to an address in TIME_WAIT.
type ReuseAddr bool

func (ReuseAddr) Key(ip.Descriptor) (int, int) { return levelSocket, optReuseAddr }
func (ReuseAddr) Supports(d ip.Descriptor) bool { return anyProtocol(d) }
func (ReuseAddr) validate(ip.Descriptor) error { return nil }
func (o ReuseAddr) set(fd int, d ip.Descriptor) error {
	return setInt(fd, d, o, boolInt(bool(o)))
}
func (o *ReuseAddr) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = v != 0
	return err
}

// ReusePort lets several sockets bind the same port.
type ReusePort bool

func (ReusePort) Key(ip.Descriptor) (int, int) { return levelSocket, optReusePort }
func (ReusePort) Supports(d ip.Descriptor) bool {
	return isKind(d, ip.KindTCP) || isKind(d, ip.KindUDP)
}
func (ReusePort) validate(ip.Descriptor) error { return nil }
func (o ReusePort) set(fd int, d ip.Descriptor) error {
	return setInt(fd, d, o, boolInt(bool(o)))
}
func (o *ReusePort) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = v != 0
	return err
}

// Broadcast permits sending to broadcast addresses.
type Broadcast bool

func (Broadcast) Key(ip.Descriptor) (int, int) { return levelSocket, optBroadcast }
func (Broadcast) Supports(d ip.Descriptor) bool { return isKind(d, ip.KindUDP) }
func (Broadcast) validate(ip.Descriptor) error { return nil }
func (o Broadcast) set(fd int, d ip.Descriptor) error {
	return setInt(fd, d, o, boolInt(bool(o)))
}
func (o *Broadcast) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = v != 0
	return err
}

// KeepAlive enables TCP keep-alive probes.
type KeepAlive bool

func (KeepAlive) Key(ip.Descriptor) (int, int) { return levelSocket, optKeepAlive }
func (KeepAlive) Supports(d ip.Descriptor) bool { return isKind(d, ip.KindTCP) }
func (KeepAlive) validate(ip.Descriptor) error { return nil }
func (o KeepAlive) set(fd int, d ip.Descriptor) error {
	return setInt(fd, d, o, boolInt(bool(o)))
}
func (o *KeepAlive) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = v != 0
	return err
}

// Linger controls how Close treats unsent data. Timeout has one second
// resolution.
type Linger struct {
	Enabled bool
	Timeout time.Duration
}

func (Linger) Key(ip.Descriptor) (int, int) { return levelSocket, optLinger }
func (Linger) Supports(d ip.Descriptor) bool { return isKind(d, ip.KindTCP) }
func (o Linger) validate(ip.Descriptor) error {
	if o.Timeout < 0 || o.Timeout/time.Second > math.MaxInt32 {
		return invalid(o, "linger timeout out of range")
	}
	return nil
}
func (o Linger) set(fd int, _ ip.Descriptor) error {
	return transport.SetLinger(fd, o.Enabled, int(o.Timeout/time.Second))
}
func (o *Linger) get(fd int, _ ip.Descriptor) error {
	on, secs, err := transport.GetLinger(fd)
	o.Enabled, o.Timeout = on, time.Duration(secs)*time.Second
	return err
}

// RecvBufferSize sets the kernel receive buffer. Linux reports back twice
// the requested size.
type RecvBufferSize int

func (RecvBufferSize) Key(ip.Descriptor) (int, int) { return levelSocket, optRcvBuf }
func (RecvBufferSize) Supports(d ip.Descriptor) bool { return anyProtocol(d) }
func (o RecvBufferSize) validate(ip.Descriptor) error {
	if o <= 0 {
		return invalid(o, "buffer size must be positive")
	}
	return nil
}
func (o RecvBufferSize) set(fd int, d ip.Descriptor) error { return setInt(fd, d, o, int(o)) }
func (o *RecvBufferSize) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = RecvBufferSize(v)
	return err
}

// SendBufferSize sets the kernel send buffer.
type SendBufferSize int

func (SendBufferSize) Key(ip.Descriptor) (int, int) { return levelSocket, optSndBuf }
func (SendBufferSize) Supports(d ip.Descriptor) bool { return anyProtocol(d) }
func (o SendBufferSize) validate(ip.Descriptor) error {
	if o <= 0 {
		return invalid(o, "buffer size must be positive")
	}
	return nil
}
func (o SendBufferSize) set(fd int, d ip.Descriptor) error { return setInt(fd, d, o, int(o)) }
func (o *SendBufferSize) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = SendBufferSize(v)
	return err
}

// NoDelay disables Nagle's algorithm.
type NoDelay bool

func (NoDelay) Key(ip.Descriptor) (int, int) { return levelTCP, optNoDelay }
func (NoDelay) Supports(d ip.Descriptor) bool { return isKind(d, ip.KindTCP) }
func (NoDelay) validate(ip.Descriptor) error { return nil }
func (o NoDelay) set(fd int, d ip.Descriptor) error {
	return setInt(fd, d, o, boolInt(bool(o)))
}
func (o *NoDelay) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = v != 0
	return err
}

// V6Only restricts an IPv6 socket to IPv6 traffic. Must be set before Bind.
type V6Only bool

func (V6Only) Key(ip.Descriptor) (int, int) { return levelIPv6, optV6Only }
func (V6Only) Supports(d ip.Descriptor) bool { return d.Family() == ip.FamilyV6 }
func (V6Only) validate(ip.Descriptor) error { return nil }
func (o V6Only) set(fd int, d ip.Descriptor) error {
	return setInt(fd, d, o, boolInt(bool(o)))
}
func (o *V6Only) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = v != 0
	return err
}

// UnicastHops is the TTL (IPv4) or hop limit (IPv6) of unicast packets.
type UnicastHops int

func (UnicastHops) Key(d ip.Descriptor) (int, int) {
	return byFamily(d, levelIP, levelIPv6), byFamily(d, optTTL, optUnicastHops)
}
func (UnicastHops) Supports(d ip.Descriptor) bool { return anyProtocol(d) }
func (o UnicastHops) validate(ip.Descriptor) error {
	if o < 1 || o > 255 {
		return invalid(o, "hops must be in 1..255")
	}
	return nil
}
func (o UnicastHops) set(fd int, d ip.Descriptor) error { return setInt(fd, d, o, int(o)) }
func (o *UnicastHops) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = UnicastHops(v)
	return err
}

// MulticastHops is the TTL or hop limit of outgoing multicast packets.
type MulticastHops int

func (MulticastHops) Key(d ip.Descriptor) (int, int) {
	return byFamily(d, levelIP, levelIPv6), byFamily(d, optMulticastTTL, optMulticastHops)
}
func (MulticastHops) Supports(d ip.Descriptor) bool { return isKind(d, ip.KindUDP) }
func (o MulticastHops) validate(ip.Descriptor) error {
	if o < 0 || o > 255 {
		return invalid(o, "hops must be in 0..255")
	}
	return nil
}
func (o MulticastHops) set(fd int, d ip.Descriptor) error { return setInt(fd, d, o, int(o)) }
func (o *MulticastHops) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = MulticastHops(v)
	return err
}

// MulticastLoop controls local delivery of outgoing multicast packets.
type MulticastLoop bool

func (MulticastLoop) Key(d ip.Descriptor) (int, int) {
	return byFamily(d, levelIP, levelIPv6), byFamily(d, optMulticastLoop, optMulticastLoop6)
}
func (MulticastLoop) Supports(d ip.Descriptor) bool { return isKind(d, ip.KindUDP) }
func (MulticastLoop) validate(ip.Descriptor) error { return nil }
func (o MulticastLoop) set(fd int, d ip.Descriptor) error {
	return setInt(fd, d, o, boolInt(bool(o)))
}
func (o *MulticastLoop) get(fd int, d ip.Descriptor) error {
	v, err := getInt(fd, d, o)
	*o = v != 0
	return err
}

// MulticastJoinGroup subscribes to Group on the interface with index
// Interface; zero lets the kernel pick. Set only.
type MulticastJoinGroup struct {
	Group     ip.Addr
	Interface int
}

func (MulticastJoinGroup) Key(d ip.Descriptor) (int, int) {
	return byFamily(d, levelIP, levelIPv6), byFamily(d, optAddMembership, optJoinGroup)
}
func (MulticastJoinGroup) Supports(d ip.Descriptor) bool { return isKind(d, ip.KindUDP) }
func (o MulticastJoinGroup) validate(d ip.Descriptor) error {
	return validateGroup(o, d, o.Group, o.Interface)
}
func (o MulticastJoinGroup) set(fd int, _ ip.Descriptor) error {
	return transport.SetMembership(fd, o.Group, o.Interface, true)
}

// MulticastLeaveGroup drops a membership added by MulticastJoinGroup.
type MulticastLeaveGroup struct {
	Group     ip.Addr
	Interface int
}

func (MulticastLeaveGroup) Key(d ip.Descriptor) (int, int) {
	return byFamily(d, levelIP, levelIPv6), byFamily(d, optDropMembership, optLeaveGroup)
}
func (MulticastLeaveGroup) Supports(d ip.Descriptor) bool { return isKind(d, ip.KindUDP) }
func (o MulticastLeaveGroup) validate(d ip.Descriptor) error {
	return validateGroup(o, d, o.Group, o.Interface)
}
func (o MulticastLeaveGroup) set(fd int, _ ip.Descriptor) error {
	return transport.SetMembership(fd, o.Group, o.Interface, false)
}

// OutboundInterface selects the interface, by index, for outgoing
// multicast.
type OutboundInterface int

func (OutboundInterface) Key(d ip.Descriptor) (int, int) {
	return byFamily(d, levelIP, levelIPv6), byFamily(d, optMulticastIf, optMulticastIf6)
}
func (OutboundInterface) Supports(d ip.Descriptor) bool { return isKind(d, ip.KindUDP) }
func (o OutboundInterface) validate(ip.Descriptor) error {
	if o < 0 {
		return invalid(o, "negative interface index")
	}
	return nil
}
func (o OutboundInterface) set(fd int, d ip.Descriptor) error {
	return transport.SetMulticastInterface(fd, d.Family(), int(o))
}
func (o *OutboundInterface) get(fd int, d ip.Descriptor) error {
	v, err := transport.GetMulticastInterface(fd, d.Family())
	*o = OutboundInterface(v)
	return err
}

// Raw is an integer option addressed by explicit level and name, for
// options outside the catalogue.
type Raw struct {
	Level int
	Name  int
	Value int
}

func (o Raw) Key(ip.Descriptor) (int, int) { return o.Level, o.Name }
func (Raw) Supports(d ip.Descriptor) bool { return anyProtocol(d) }
func (Raw) validate(ip.Descriptor) error { return nil }
func (o Raw) set(fd int, _ ip.Descriptor) error {
	return transport.SetsockoptInt(fd, o.Level, o.Name, o.Value)
}
func (o *Raw) get(fd int, _ ip.Descriptor) error {
	v, err := transport.GetsockoptInt(fd, o.Level, o.Name)
	o.Value = v
	return err
}

func validateGroup(opt Option, d ip.Descriptor, group ip.Addr, ifindex int) error {
	switch {
	case !group.IsValid():
		return invalid(opt, "group address is not set")
	case group.Family() != d.Family():
		return invalid(opt, "group family "+group.Family().String()+" does not match socket family "+d.Family().String())
	case !group.IsMulticast():
		return invalid(opt, group.String()+" is not a multicast address")
	case ifindex < 0:
		return invalid(opt, "negative interface index")
	}
	return nil
}
