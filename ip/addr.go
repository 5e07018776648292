// File: ip/addr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Version independent IP address value type.

package ip

import (
	"bytes"
	"errors"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/momentics/hioload-aio/api"
)

// Family is the address family of an Addr or Protocol.
type Family uint8

const (
	FamilyUnspec Family = iota
	FamilyV4
	FamilyV6
)

func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "ipv4"
	case FamilyV6:
		return "ipv6"
	default:
		return "unspec"
	}
}

// Addr is an IPv4 or IPv6 address. V6 addresses may carry a scope id and
// a zone name. The zero value is the invalid address. Addr is comparable.
type Addr struct {
	fam    Family
	octets [16]byte
	scope  uint32
	zone   string
}

// AddrParseError reports a malformed textual address.
type AddrParseError struct {
	Input string
	Err   error
}

func (e *AddrParseError) Error() string {
	return "ip: malformed address " + strconv.Quote(e.Input) + ": " + e.Err.Error()
}

func (e *AddrParseError) Unwrap() error { return e.Err }

// Is matches api.ErrAddrParse.
func (e *AddrParseError) Is(target error) bool {
	t, ok := target.(*api.Error)
	return ok && t.Code == api.ErrCodeAddrParse
}

// ErrorCode implements the api.CodeOf hook.
func (e *AddrParseError) ErrorCode() api.ErrorCode { return api.ErrCodeAddrParse }

// V4 builds an IPv4 address from its four octets.
func V4(a, b, c, d byte) Addr {
	return Addr{fam: FamilyV4, octets: [16]byte{a, b, c, d}}
}

// V4From builds an IPv4 address from raw octets.
func V4From(o [4]byte) Addr {
	return V4(o[0], o[1], o[2], o[3])
}

// V6 builds an IPv6 address from raw octets and a scope id.
func V6(o [16]byte, scope uint32) Addr {
	return Addr{fam: FamilyV6, octets: o, scope: scope}
}

// AddrFromSlice builds an address from a 4 or 16 byte slice.
func AddrFromSlice(b []byte) (Addr, bool) {
	switch len(b) {
	case 4:
		return V4(b[0], b[1], b[2], b[3]), true
	case 16:
		var o [16]byte
		copy(o[:], b)
		return V6(o, 0), true
	}
	return Addr{}, false
}

// AnyV4 returns 0.0.0.0.
func AnyV4() Addr { return V4(0, 0, 0, 0) }

// AnyV6 returns ::.
func AnyV6() Addr { return V6([16]byte{}, 0) }

// LoopbackV4 returns 127.0.0.1.
func LoopbackV4() Addr { return V4(127, 0, 0, 1) }

// LoopbackV6 returns ::1.
func LoopbackV6() Addr { return V6([16]byte{15: 1}, 0) }

// Any returns the wildcard address for f.
func Any(f Family) Addr {
	if f == FamilyV6 {
		return AnyV6()
	}
	return AnyV4()
}

// Loopback returns the loopback address for f.
func Loopback(f Family) Addr {
	if f == FamilyV6 {
		return LoopbackV6()
	}
	return LoopbackV4()
}

// ParseAddr parses dotted-quad IPv4 or RFC 4291 IPv6 text, with an optional
// %zone suffix on IPv6. IPv4-mapped IPv6 text stays IPv6.
func ParseAddr(s string) (Addr, error) {
	na, err := netip.ParseAddr(s)
	if err != nil {
		return Addr{}, &AddrParseError{Input: s, Err: unwrapNetip(err)}
	}
	return AddrFrom(na), nil
}

// MustParseAddr is ParseAddr that panics; intended for constants and tests.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddrFrom converts a netip.Addr.
func AddrFrom(na netip.Addr) Addr {
	if !na.IsValid() {
		return Addr{}
	}
	if na.Is4() {
		return V4From(na.As4())
	}
	a := V6(na.As16(), 0)
	if z := na.Zone(); z != "" {
		if n, err := strconv.ParseUint(z, 10, 32); err == nil {
			a.scope = uint32(n)
		} else {
			a.zone = z
			if ifi, err := net.InterfaceByName(z); err == nil {
				a.scope = uint32(ifi.Index)
			}
		}
	}
	return a
}

// AddrFromIP converts a net.IP; 4-in-6 forms become V4.
func AddrFromIP(b net.IP) (Addr, bool) {
	if v4 := b.To4(); v4 != nil {
		return V4(v4[0], v4[1], v4[2], v4[3]), true
	}
	return AddrFromSlice(b)
}

// Family reports the address family.
func (a Addr) Family() Family { return a.fam }

// IsValid reports whether a is not the zero Addr.
func (a Addr) IsValid() bool { return a.fam != FamilyUnspec }

// Is4 reports whether a is an IPv4 address.
func (a Addr) Is4() bool { return a.fam == FamilyV4 }

// Is6 reports whether a is an IPv6 address.
func (a Addr) Is6() bool { return a.fam == FamilyV6 }

// As4 returns the IPv4 octets. It panics for non-V4 addresses.
func (a Addr) As4() [4]byte {
	if a.fam != FamilyV4 {
		panic("ip: As4 called on " + a.fam.String() + " address")
	}
	return [4]byte{a.octets[0], a.octets[1], a.octets[2], a.octets[3]}
}

// As16 returns the IPv6 octets. It panics for non-V6 addresses.
func (a Addr) As16() [16]byte {
	if a.fam != FamilyV6 {
		panic("ip: As16 called on " + a.fam.String() + " address")
	}
	return a.octets
}

// Bytes returns a copy of the 4 or 16 address octets.
func (a Addr) Bytes() []byte {
	switch a.fam {
	case FamilyV4:
		return append([]byte(nil), a.octets[:4]...)
	case FamilyV6:
		return append([]byte(nil), a.octets[:]...)
	}
	return nil
}

// ScopeID returns the IPv6 scope id, zero for IPv4.
func (a Addr) ScopeID() uint32 { return a.scope }

// Zone returns the IPv6 zone name if the address was parsed with one.
func (a Addr) Zone() string { return a.zone }

// WithScope returns a copy with the scope id replaced.
func (a Addr) WithScope(scope uint32) Addr {
	if a.fam != FamilyV6 {
		return a
	}
	a.scope, a.zone = scope, ""
	return a
}

// Netip converts to netip.Addr.
func (a Addr) Netip() netip.Addr {
	switch a.fam {
	case FamilyV4:
		return netip.AddrFrom4(a.As4())
	case FamilyV6:
		na := netip.AddrFrom16(a.octets)
		if z := a.zoneText(); z != "" {
			na = na.WithZone(z)
		}
		return na
	}
	return netip.Addr{}
}

// IP converts to net.IP.
func (a Addr) IP() net.IP {
	return net.IP(a.Bytes())
}

// IsUnspecified reports whether a is 0.0.0.0 or ::.
func (a Addr) IsUnspecified() bool { return a.IsValid() && a.Netip().IsUnspecified() }

// IsLoopback reports whether a is a loopback address.
func (a Addr) IsLoopback() bool { return a.IsValid() && a.Netip().IsLoopback() }

// IsMulticast reports whether a is a multicast group address.
func (a Addr) IsMulticast() bool { return a.IsValid() && a.Netip().IsMulticast() }

// IsLinkLocal reports whether a is a link-local unicast address.
func (a Addr) IsLinkLocal() bool { return a.IsValid() && a.Netip().IsLinkLocalUnicast() }

// Compare returns -1, 0 or +1. All V4 addresses sort before all V6 ones;
// within a family octets compare big-endian, then the scope id.
func (a Addr) Compare(b Addr) int {
	if a.fam != b.fam {
		if a.fam < b.fam {
			return -1
		}
		return 1
	}
	if c := bytes.Compare(a.octets[:], b.octets[:]); c != 0 {
		return c
	}
	switch {
	case a.scope < b.scope:
		return -1
	case a.scope > b.scope:
		return 1
	}
	switch {
	case a.zone < b.zone:
		return -1
	case a.zone > b.zone:
		return 1
	}
	return 0
}

// Less reports whether a sorts before b.
func (a Addr) Less(b Addr) bool { return a.Compare(b) < 0 }

// String formats the address in canonical text form.
func (a Addr) String() string {
	if !a.IsValid() {
		return "invalid IP"
	}
	return a.Netip().String()
}

// MarshalText implements encoding.TextMarshaler.
func (a Addr) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return []byte{}, nil
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Addr) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = Addr{}
		return nil
	}
	p, err := ParseAddr(string(text))
	if err != nil {
		return err
	}
	*a = p
	return nil
}

func (a Addr) zoneText() string {
	if a.zone != "" {
		return a.zone
	}
	if a.scope != 0 {
		return strconv.FormatUint(uint64(a.scope), 10)
	}
	return ""
}

// unwrapNetip strips the input echo netip puts in front of its reason.
func unwrapNetip(err error) error {
	msg := err.Error()
	if i := strings.Index(msg, "): "); i >= 0 && strings.HasPrefix(msg, "ParseAddr(") {
		msg = msg[i+3:]
	}
	return errors.New(msg)
}
