// File: ip/protocol.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Protocol descriptors. The set is closed: TCP, UDP and ICMP, each for v4
// and v6. A descriptor is a constant capability tag that tells the OS
// transport which (family, type, protocol number) triple to allocate.

package ip

import "syscall"

// Kind identifies one of the supported transport protocols.
type Kind uint8

const (
	KindTCP Kind = iota + 1
	KindUDP
	KindICMP
)

func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindUDP:
		return "udp"
	case KindICMP:
		return "icmp"
	}
	return "unknown"
}

// IANA protocol numbers.
const (
	protoICMP   = 1
	protoTCP    = 6
	protoUDP    = 17
	protoICMPv6 = 58
)

// Descriptor is the non-generic view of a protocol used by layers that do
// not care which concrete protocol they handle (options, transport).
type Descriptor interface {
	Kind() Kind
	Family() Family
	// SockFamily is the AF_* constant.
	SockFamily() int
	// SockType is the SOCK_* constant.
	SockType() int
	// Number is the IPPROTO_* value.
	Number() int
	String() string
}

// Protocol constrains generic endpoints and sockets to the closed set.
// ForFamily returns the same protocol bound to another family.
type Protocol[P any] interface {
	comparable
	Descriptor
	ForFamily(Family) P
}

// TCP is the Transmission Control Protocol descriptor.
type TCP struct{ family Family }

// UDP is the User Datagram Protocol descriptor.
type UDP struct{ family Family }

// ICMP is the Internet Control Message Protocol descriptor, used in
// datagram ("ping socket") mode.
type ICMP struct{ family Family }

func TCPv4() TCP { return TCP{FamilyV4} }
func TCPv6() TCP { return TCP{FamilyV6} }
func UDPv4() UDP { return UDP{FamilyV4} }
func UDPv6() UDP { return UDP{FamilyV6} }
func ICMPv4() ICMP { return ICMP{FamilyV4} }
func ICMPv6() ICMP { return ICMP{FamilyV6} }

func (p TCP) Kind() Kind { return KindTCP }
func (p TCP) Family() Family { return p.family }
func (p TCP) SockFamily() int { return sockFamily(p.family) }
func (p TCP) SockType() int { return syscall.SOCK_STREAM }
func (p TCP) Number() int { return protoTCP }
func (p TCP) ForFamily(f Family) TCP { return TCP{f} }
func (p TCP) String() string { return name("tcp", p.family) }
func (p UDP) Kind() Kind { return KindUDP }
func (p UDP) Family() Family { return p.family }
func (p UDP) SockFamily() int { return sockFamily(p.family) }
func (p UDP) SockType() int { return syscall.SOCK_DGRAM }
func (p UDP) Number() int { return protoUDP }
func (p UDP) ForFamily(f Family) UDP { return UDP{f} }
func (p UDP) String() string { return name("udp", p.family) }
func (p ICMP) Kind() Kind { return KindICMP }
func (p ICMP) Family() Family { return p.family }
func (p ICMP) SockFamily() int { return sockFamily(p.family) }
func (p ICMP) SockType() int { return syscall.SOCK_DGRAM }
func (p ICMP) ForFamily(f Family) ICMP { return ICMP{f} }
func (p ICMP) String() string { return name("icmp", p.family) }

// Number is 1 for ICMPv4 and 58 for ICMPv6.
func (p ICMP) Number() int {
	if p.family == FamilyV6 {
		return protoICMPv6
	}
	return protoICMP
}

// Valid reports whether d names a usable (family-bound) protocol.
func Valid(d Descriptor) bool {
	return d != nil && (d.Family() == FamilyV4 || d.Family() == FamilyV6)
}

func sockFamily(f Family) int {
	switch f {
	case FamilyV4:
		return syscall.AF_INET
	case FamilyV6:
		return syscall.AF_INET6
	}
	return syscall.AF_UNSPEC
}

func name(base string, f Family) string {
	switch f {
	case FamilyV4:
		return base + "4"
	case FamilyV6:
		return base + "6"
	}
	return base
}
