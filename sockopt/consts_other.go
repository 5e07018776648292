//go:build !linux
// +build !linux

// File: sockopt/consts_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Placeholder keys; the transport rejects every call on these platforms.

package sockopt

const (
	levelSocket = -1
	levelIP     = -1
	levelIPv6   = -1
	levelTCP    = -1

	optReuseAddr = iota
	optReusePort
	optBroadcast
	optKeepAlive
	optLinger
	optRcvBuf
	optSndBuf
	optNoDelay
	optV6Only
	optTTL
	optUnicastHops
	optMulticastTTL
	optMulticastHops
	optMulticastLoop
	optMulticastLoop6
	optMulticastIf
	optMulticastIf6
	optAddMembership
	optDropMembership
	optJoinGroup
	optLeaveGroup
)
