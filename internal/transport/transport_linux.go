//go:build linux
// +build linux

// File: internal/transport/transport_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux OS transport over golang.org/x/sys/unix. Primitives return raw
// errno values so callers can test for EAGAIN/EINPROGRESS; wrap with Wrap
// before surfacing them.

package transport

import (
	"context"
	"errors"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ip"
	"golang.org/x/sys/unix"
)

const platformSupported = true

// waitSlice bounds a single blocking poll so context cancellation and
// concurrent close are noticed.
const waitSlice = 50 * time.Millisecond

// Socket allocates a non-blocking, close-on-exec handle for d.
func Socket(d ip.Descriptor) (int, error) {
	if !ip.Valid(d) {
		return -1, api.Wrap(api.ErrCodeInvalidValue, "socket", nil).WithContext("protocol", d)
	}
	fd, err := unix.Socket(d.SockFamily(), d.SockType()|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, d.Number())
	if err != nil {
		return -1, err
	}
	return fd, nil
}

// Close releases fd.
func Close(fd int) error {
	return unix.Close(fd)
}

// Bind assigns a local address.
func Bind(fd int, addr ip.Addr, port uint16) error {
	return unix.Bind(fd, sockaddr(addr, port))
}

// Connect starts a connection; EINPROGRESS is the normal non-blocking answer.
func Connect(fd int, addr ip.Addr, port uint16) error {
	return unix.Connect(fd, sockaddr(addr, port))
}

// Listen marks a stream socket passive.
func Listen(fd int, backlog int) error {
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	return unix.Listen(fd, backlog)
}

// Accept takes one pending connection; the new handle is non-blocking.
func Accept(fd int) (int, Peer, error) {
	nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, Peer{}, err
	}
	return nfd, peer(sa), nil
}

// Send writes on a connected socket. SIGPIPE is suppressed.
func Send(fd int, b []byte) (int, error) {
	return unix.SendmsgN(fd, b, nil, nil, unix.MSG_NOSIGNAL)
}

// SendTo writes one datagram to addr:port.
func SendTo(fd int, b []byte, addr ip.Addr, port uint16) (int, error) {
	return unix.SendmsgN(fd, b, nil, sockaddr(addr, port), unix.MSG_NOSIGNAL)
}

// Recv reads from a connected socket.
func Recv(fd int, b []byte) (int, error) {
	n, _, err := unix.Recvfrom(fd, b, 0)
	return n, err
}

// RecvFrom reads one datagram and its source.
func RecvFrom(fd int, b []byte) (int, Peer, error) {
	n, sa, err := unix.Recvfrom(fd, b, 0)
	if err != nil {
		return n, Peer{}, err
	}
	return n, peer(sa), nil
}

// Shutdown disables one or both directions of a connection.
func Shutdown(fd int, how ShutdownHow) error {
	switch how {
	case ShutdownRead:
		return unix.Shutdown(fd, unix.SHUT_RD)
	case ShutdownWrite:
		return unix.Shutdown(fd, unix.SHUT_WR)
	default:
		return unix.Shutdown(fd, unix.SHUT_RDWR)
	}
}

// LocalAddr returns the bound address.
func LocalAddr(fd int) (Peer, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return Peer{}, err
	}
	return peer(sa), nil
}

// PeerAddr returns the connected remote address.
func PeerAddr(fd int) (Peer, error) {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return Peer{}, err
	}
	return peer(sa), nil
}

// SocketError fetches and clears the pending SO_ERROR.
func SocketError(fd int) error {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

// Available reports the number of bytes ready to read.
func Available(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.SIOCINQ)
}

// GetsockoptInt reads an integer option.
func GetsockoptInt(fd, level, name int) (int, error) {
	return unix.GetsockoptInt(fd, level, name)
}

// SetsockoptInt writes an integer option.
func SetsockoptInt(fd, level, name, value int) error {
	return unix.SetsockoptInt(fd, level, name, value)
}

// GetLinger reads SO_LINGER.
func GetLinger(fd int) (bool, int, error) {
	l, err := unix.GetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER)
	if err != nil {
		return false, 0, err
	}
	return l.Onoff != 0, int(l.Linger), nil
}

// SetLinger writes SO_LINGER.
func SetLinger(fd int, on bool, seconds int) error {
	l := &unix.Linger{Linger: int32(seconds)}
	if on {
		l.Onoff = 1
	}
	return unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, l)
}

// SetMembership joins or leaves a multicast group. ifindex 0 lets the
// kernel choose the interface.
func SetMembership(fd int, group ip.Addr, ifindex int, join bool) error {
	if group.Is4() {
		name := unix.IP_DROP_MEMBERSHIP
		if join {
			name = unix.IP_ADD_MEMBERSHIP
		}
		mreq := &unix.IPMreqn{Multiaddr: group.As4(), Ifindex: int32(ifindex)}
		return unix.SetsockoptIPMreqn(fd, unix.IPPROTO_IP, name, mreq)
	}
	name := unix.IPV6_LEAVE_GROUP
	if join {
		name = unix.IPV6_JOIN_GROUP
	}
	mreq := &unix.IPv6Mreq{Multiaddr: group.As16(), Interface: uint32(ifindex)}
	return unix.SetsockoptIPv6Mreq(fd, unix.IPPROTO_IPV6, name, mreq)
}

// SetMulticastInterface selects the outbound interface for multicast.
func SetMulticastInterface(fd int, family ip.Family, ifindex int) error {
	if family == ip.FamilyV4 {
		mreq := &unix.IPMreqn{Ifindex: int32(ifindex)}
		return unix.SetsockoptIPMreqn(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_IF, mreq)
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_IF, ifindex)
}

// GetMulticastInterface reads the outbound multicast interface index.
func GetMulticastInterface(fd int, family ip.Family) (int, error) {
	if family == ip.FamilyV4 {
		mreq, err := unix.GetsockoptIPMreqn(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_IF)
		if err != nil {
			return 0, err
		}
		return int(mreq.Ifindex), nil
	}
	return unix.GetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_IF)
}

// WaitIO blocks until fd is readable (or writable when write is set), the
// context ends, or the handle is closed underneath the caller.
func WaitIO(ctx context.Context, fd int, write bool) error {
	events := int16(unix.POLLIN)
	if write {
		events = unix.POLLOUT
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		slice := waitSlice
		if dl, ok := ctx.Deadline(); ok {
			if left := time.Until(dl); left < slice {
				slice = left
			}
		}
		if slice < 0 {
			slice = 0
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		n, err := unix.Poll(fds, int(slice/time.Millisecond))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if n > 0 {
			if fds[0].Revents&unix.POLLNVAL != 0 {
				return unix.EBADF
			}
			return nil
		}
	}
}

// IsWouldBlock reports EAGAIN/EWOULDBLOCK.
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// IsInProgress reports a non-blocking connect that has not finished yet.
func IsInProgress(err error) bool {
	return errors.Is(err, unix.EINPROGRESS) || errors.Is(err, unix.EALREADY) || errors.Is(err, unix.EINTR)
}

// IsNotConnected reports ENOTCONN.
func IsNotConnected(err error) bool {
	return errors.Is(err, unix.ENOTCONN)
}

// IsInterrupted reports EINTR.
func IsInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

func sockaddr(addr ip.Addr, port uint16) unix.Sockaddr {
	if addr.Is4() {
		return &unix.SockaddrInet4{Port: int(port), Addr: addr.As4()}
	}
	return &unix.SockaddrInet6{Port: int(port), ZoneId: addr.ScopeID(), Addr: addr.As16()}
}

func peer(sa unix.Sockaddr) Peer {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return Peer{Addr: ip.V4From(sa.Addr), Port: uint16(sa.Port)}
	case *unix.SockaddrInet6:
		return Peer{Addr: ip.V6(sa.Addr, sa.ZoneId), Port: uint16(sa.Port)}
	}
	return Peer{}
}
