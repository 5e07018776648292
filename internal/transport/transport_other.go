//go:build !linux
// +build !linux

// File: internal/transport/transport_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Placeholder transport for platforms without an edge-triggered backend.
// Every primitive fails with api.ErrNotSupported.

package transport

import (
	"context"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ip"
)

const platformSupported = false

func unsupported(op string) error {
	return api.Wrap(api.ErrCodeNotSupported, op, nil)
}

func classify(error) api.ErrorCode { return api.ErrCodeOS }

func Socket(ip.Descriptor) (int, error) { return -1, unsupported("socket") }
func Close(int) error { return unsupported("close") }
func Bind(int, ip.Addr, uint16) error { return unsupported("bind") }
func Connect(int, ip.Addr, uint16) error { return unsupported("connect") }
func Listen(int, int) error { return unsupported("listen") }
func Accept(int) (int, Peer, error) { return -1, Peer{}, unsupported("accept") }
func Send(int, []byte) (int, error) { return 0, unsupported("send") }
func SendTo(int, []byte, ip.Addr, uint16) (int, error) { return 0, unsupported("sendto") }
func Recv(int, []byte) (int, error) { return 0, unsupported("recv") }
func RecvFrom(int, []byte) (int, Peer, error) { return 0, Peer{}, unsupported("recvfrom") }
func Shutdown(int, ShutdownHow) error { return unsupported("shutdown") }
func LocalAddr(int) (Peer, error) { return Peer{}, unsupported("getsockname") }
func PeerAddr(int) (Peer, error) { return Peer{}, unsupported("getpeername") }
func SocketError(int) error { return unsupported("getsockopt") }
func Available(int) (int, error) { return 0, unsupported("ioctl") }
func GetsockoptInt(int, int, int) (int, error) { return 0, unsupported("getsockopt") }
func SetsockoptInt(int, int, int, int) error { return unsupported("setsockopt") }
func GetLinger(int) (bool, int, error) { return false, 0, unsupported("getsockopt") }
func SetLinger(int, bool, int) error { return unsupported("setsockopt") }
func SetMembership(int, ip.Addr, int, bool) error { return unsupported("setsockopt") }
func SetMulticastInterface(int, ip.Family, int) error { return unsupported("setsockopt") }
func GetMulticastInterface(int, ip.Family) (int, error) { return 0, unsupported("getsockopt") }
func WaitIO(context.Context, int, bool) error { return unsupported("poll") }
func IsWouldBlock(error) bool { return false }
func IsInProgress(error) bool { return false }
func IsInterrupted(error) bool { return false }
func IsNotConnected(error) bool { return false }

// Poller is unavailable on this platform.
type Poller struct{}

func NewPoller(int) (*Poller, error) { return nil, unsupported("poller") }
func (*Poller) Add(int, uint64) error { return unsupported("poller") }
func (*Poller) Remove(int) error { return nil }
func (*Poller) Wait(time.Duration, []Event) (int, error) { return 0, unsupported("poller") }
func (*Poller) Wake() error { return nil }
func (*Poller) Close() error { return nil }
