// File: socket/tcp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"context"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/transport"
	"github.com/momentics/hioload-aio/ip"
	"github.com/momentics/hioload-aio/reactor"
	"github.com/momentics/hioload-aio/sockopt"
	"go.uber.org/zap"
)

// TCPSocket is a stream socket.
type TCPSocket struct {
	base[ip.TCP]
}

// NewTCPSocket returns an unopened socket bound to r.
func NewTCPSocket(r *reactor.Reactor) *TCPSocket {
	s := &TCPSocket{}
	s.init(r)
	return s
}

// DialTCP opens a socket and connects it to ep.
func DialTCP(ctx context.Context, r *reactor.Reactor, ep ip.TCPEndpoint) (*TCPSocket, error) {
	s := NewTCPSocket(r)
	if err := s.Connect(ctx, ep); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// TCPListener accepts incoming stream connections.
type TCPListener struct {
	base[ip.TCP]
}

// NewTCPListener returns an unopened listener bound to r.
func NewTCPListener(r *reactor.Reactor) *TCPListener {
	l := &TCPListener{}
	l.init(r)
	return l
}

// ListenTCP opens, binds and listens on ep with SO_REUSEADDR set.
func ListenTCP(r *reactor.Reactor, ep ip.TCPEndpoint, backlog int) (*TCPListener, error) {
	l := NewTCPListener(r)
	if err := l.Open(ep.Protocol()); err != nil {
		return nil, err
	}
	err := l.SetOption(sockopt.ReuseAddr(true))
	if err == nil {
		err = l.Bind(ep)
	}
	if err == nil {
		err = l.Listen(backlog)
	}
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

// Listen starts accepting connections. backlog <= 0 uses the system
// maximum.
func (l *TCPListener) Listen(backlog int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case Open, Bound:
	case Closed:
		return api.Wrap(api.ErrCodeClosed, "listen", nil)
	default:
		return api.Wrap(api.ErrCodeInvalidState, "listen", nil).WithContext("state", l.state.String())
	}
	if err := transport.Listen(l.fd, backlog); err != nil {
		return transport.Wrap("listen", err)
	}
	l.state = Listening
	return nil
}

// Accepted is the Completion.Value of AsyncAccept.
type Accepted struct {
	Socket *TCPSocket
	Peer   ip.TCPEndpoint
}

// Accept waits for the next connection.
func (l *TCPListener) Accept(ctx context.Context) (*TCPSocket, ip.TCPEndpoint, error) {
	_, v, err := l.blocking(ctx, "accept", false, l.acceptOne, Listening)
	if err != nil {
		return nil, ip.TCPEndpoint{}, err
	}
	a := v.(Accepted)
	return a.Socket, a.Peer, nil
}

// AsyncAccept completes h with an Accepted value.
func (l *TCPListener) AsyncAccept(h reactor.Handler) *reactor.Operation {
	return l.async(api.OpAccept, "accept", reactor.Read, l.acceptOne, h, Listening)
}

func (l *TCPListener) acceptOne(fd int) (int, any, error) {
	nfd, peer, err := transport.Accept(fd)
	if err != nil {
		return 0, nil, err
	}
	proto := l.Protocol()
	s := NewTCPSocket(l.r)
	s.mu.Lock()
	err = s.adoptLocked(proto, nfd, Connected)
	s.mu.Unlock()
	if err != nil {
		return 0, nil, err
	}
	ep := ip.EndpointOf[ip.TCP](peer.Addr, peer.Port)
	l.log.Debug("connection accepted", zap.Stringer("peer", ep), zap.Int("fd", nfd))
	return 0, Accepted{Socket: s, Peer: ep}, nil
}
