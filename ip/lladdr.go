// File: ip/lladdr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Link-layer (EUI-48) address value type.

package ip

import (
	"bytes"
	"fmt"
	"net"
)

// LlAddr is a 6-octet link-layer address.
type LlAddr [6]byte

// ParseLlAddr parses "aa:bb:cc:dd:ee:ff", "aa-bb-cc-dd-ee-ff" or
// "aabb.ccdd.eeff". Only 48-bit addresses are accepted.
func ParseLlAddr(s string) (LlAddr, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return LlAddr{}, &AddrParseError{Input: s, Err: err}
	}
	if len(hw) != 6 {
		return LlAddr{}, &AddrParseError{Input: s, Err: fmt.Errorf("want 6 octets, got %d", len(hw))}
	}
	var l LlAddr
	copy(l[:], hw)
	return l, nil
}

// String formats the address as lowercase colon separated octets.
func (l LlAddr) String() string {
	return net.HardwareAddr(l[:]).String()
}

// Compare orders link-layer addresses by octets.
func (l LlAddr) Compare(o LlAddr) int {
	return bytes.Compare(l[:], o[:])
}

// IsMulticast reports whether the group bit is set.
func (l LlAddr) IsMulticast() bool { return l[0]&0x01 != 0 }

// IsBroadcast reports whether l is ff:ff:ff:ff:ff:ff.
func (l LlAddr) IsBroadcast() bool { return l == LlAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff} }
