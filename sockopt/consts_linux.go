//go:build linux
// +build linux

// File: sockopt/consts_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sockopt

import "golang.org/x/sys/unix"

const (
	levelSocket = unix.SOL_SOCKET
	levelIP     = unix.IPPROTO_IP
	levelIPv6   = unix.IPPROTO_IPV6
	levelTCP    = unix.IPPROTO_TCP

	optReuseAddr = unix.SO_REUSEADDR
	optReusePort = unix.SO_REUSEPORT
	optBroadcast = unix.SO_BROADCAST
	optKeepAlive = unix.SO_KEEPALIVE
	optLinger    = unix.SO_LINGER
	optRcvBuf    = unix.SO_RCVBUF
	optSndBuf    = unix.SO_SNDBUF
	optNoDelay   = unix.TCP_NODELAY
	optV6Only    = unix.IPV6_V6ONLY

	optTTL            = unix.IP_TTL
	optUnicastHops    = unix.IPV6_UNICAST_HOPS
	optMulticastTTL   = unix.IP_MULTICAST_TTL
	optMulticastHops  = unix.IPV6_MULTICAST_HOPS
	optMulticastLoop  = unix.IP_MULTICAST_LOOP
	optMulticastLoop6 = unix.IPV6_MULTICAST_LOOP
	optMulticastIf    = unix.IP_MULTICAST_IF
	optMulticastIf6   = unix.IPV6_MULTICAST_IF
	optAddMembership  = unix.IP_ADD_MEMBERSHIP
	optDropMembership = unix.IP_DROP_MEMBERSHIP
	optJoinGroup      = unix.IPV6_JOIN_GROUP
	optLeaveGroup     = unix.IPV6_LEAVE_GROUP
)
