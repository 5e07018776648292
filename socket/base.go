// File: socket/base.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Protocol independent core shared by every socket type.

package socket

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/transport"
	"github.com/momentics/hioload-aio/ip"
	"github.com/momentics/hioload-aio/reactor"
	"github.com/momentics/hioload-aio/sockopt"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// attempt is one non-blocking try of a transfer. v carries per-operation
// payload such as the source endpoint of a datagram.
type attempt func(fd int) (n int, v any, err error)

type base[P ip.Protocol[P]] struct {
	r   *reactor.Reactor
	log *zap.Logger

	mu    sync.Mutex
	proto P
	fd    int
	desc  *reactor.Descriptor
	state State
}

func (b *base[P]) init(r *reactor.Reactor) {
	b.r, b.log, b.fd = r, r.Logger(), -1
}

// Open allocates a handle for protocol p and registers it with the reactor.
func (b *base[P]) Open(p P) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openLocked(p)
}

func (b *base[P]) openLocked(p P) error {
	switch b.state {
	case Unopened:
	case Closed:
		return api.Wrap(api.ErrCodeClosed, "open", nil)
	default:
		return api.Wrap(api.ErrCodeInvalidState, "open", nil).WithContext("state", b.state.String())
	}
	fd, err := transport.Socket(p)
	if err != nil {
		var ae *api.Error
		if errors.As(err, &ae) {
			return err
		}
		return api.Wrap(api.ErrCodeOS, "socket", err).WithContext("protocol", p.String())
	}
	return b.adoptLocked(p, fd, Open)
}

// adoptLocked registers an already allocated handle.
func (b *base[P]) adoptLocked(p P, fd int, st State) error {
	desc, err := b.r.Register(fd)
	if err != nil {
		_ = transport.Close(fd)
		return err
	}
	b.proto, b.fd, b.desc, b.state = p, fd, desc, st
	b.log.Debug("socket opened", zap.String("protocol", p.String()), zap.Int("fd", fd), zap.Stringer("state", st))
	return nil
}

// ensureLocked opens the socket for ep's protocol when still unopened and
// verifies the family otherwise.
func (b *base[P]) ensureLocked(op string, ep ip.Endpoint[P]) error {
	if !ep.IsValid() {
		return api.Wrap(api.ErrCodeInvalidValue, op, nil).WithContext("endpoint", ep.String())
	}
	if b.state == Unopened {
		return b.openLocked(ep.Protocol())
	}
	if b.state == Closed {
		return api.Wrap(api.ErrCodeClosed, op, nil)
	}
	return ip.CheckFamily(op, b.proto, ep.Addr())
}

// Bind assigns the local endpoint. An unopened socket is opened for the
// endpoint's protocol first.
func (b *base[P]) Bind(ep ip.Endpoint[P]) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureLocked("bind", ep); err != nil {
		return err
	}
	if b.state != Open {
		return api.Wrap(api.ErrCodeInvalidState, "bind", nil).WithContext("state", b.state.String())
	}
	if err := transport.Bind(b.fd, ep.Addr(), ep.Port()); err != nil {
		return transport.Wrap("bind", err).(*api.Error).WithContext("endpoint", ep.String())
	}
	b.state = Bound
	return nil
}

// Connect establishes the default peer, blocking until the connection is
// made or ctx ends. Datagram sockets only record the peer.
func (b *base[P]) Connect(ctx context.Context, ep ip.Endpoint[P]) error {
	fd, err := b.startConnect(ep)
	if err == nil {
		b.setState(Connected)
		return nil
	}
	if !transport.IsInProgress(err) {
		return transport.Wrap("connect", err)
	}
	for {
		if werr := transport.WaitIO(ctx, fd, true); werr != nil {
			return transport.Wrap("connect", werr)
		}
		c, done := connectResult(fd)
		if done {
			if c.Err == nil {
				b.setState(Connected)
			}
			return c.Err
		}
	}
}

// AsyncConnect starts a connection and completes h when it is established
// or fails. Failures detected before the handshake starts (closed socket,
// protocol mismatch, immediate refusal) are already published on the
// returned operation when AsyncConnect returns; h still runs once.
func (b *base[P]) AsyncConnect(ep ip.Endpoint[P], h reactor.Handler) *reactor.Operation {
	wrapped := func(c api.Completion) {
		if c.Err == nil {
			b.setState(Connected)
		}
		if h != nil {
			h(c)
		}
	}
	fd, err := b.startConnect(ep)
	switch {
	case err == nil:
		return b.r.Complete(b.descriptor(), api.OpConnect, api.Completion{}, wrapped)
	case !transport.IsInProgress(err):
		return b.r.Complete(b.descriptor(), api.OpConnect, api.Completion{Err: transport.Wrap("connect", err)}, wrapped)
	}
	return b.r.Submit(b.descriptor(), reactor.Write, api.OpConnect, func() (api.Completion, bool) {
		return connectResult(fd)
	}, wrapped)
}

func (b *base[P]) startConnect(ep ip.Endpoint[P]) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureLocked("connect", ep); err != nil {
		return -1, err
	}
	if b.state == Listening {
		return -1, api.Wrap(api.ErrCodeInvalidState, "connect", nil).WithContext("state", b.state.String())
	}
	return b.fd, transport.Connect(b.fd, ep.Addr(), ep.Port())
}

// connectResult inspects a connecting handle. It reports false while the
// handshake is still running.
func connectResult(fd int) (api.Completion, bool) {
	if err := transport.SocketError(fd); err != nil {
		return api.Completion{Err: transport.Wrap("connect", err)}, true
	}
	if _, err := transport.PeerAddr(fd); err != nil {
		if transport.IsNotConnected(err) {
			return api.Completion{}, false
		}
		return api.Completion{Err: transport.Wrap("connect", err)}, true
	}
	return api.Completion{}, true
}

// Send writes p on a connected socket. It may transfer fewer bytes than
// len(p); the count is exact.
func (b *base[P]) Send(ctx context.Context, p []byte) (int, error) {
	n, _, err := b.blocking(ctx, "send", true, sendTo(p), Connected)
	return n, err
}

// AsyncSend is the asynchronous form of Send.
func (b *base[P]) AsyncSend(p []byte, h reactor.Handler) *reactor.Operation {
	return b.async(api.OpWrite, "send", reactor.Write, sendTo(p), h, Connected)
}

// Receive reads into p from a connected socket.
func (b *base[P]) Receive(ctx context.Context, p []byte) (int, error) {
	n, _, err := b.blocking(ctx, "receive", false, b.recvFrom(p), Connected)
	return n, err
}

// AsyncReceive is the asynchronous form of Receive.
func (b *base[P]) AsyncReceive(p []byte, h reactor.Handler) *reactor.Operation {
	return b.async(api.OpRead, "receive", reactor.Read, b.recvFrom(p), h, Connected)
}

func sendTo(p []byte) attempt {
	return func(fd int) (int, any, error) {
		n, err := transport.Send(fd, p)
		return n, nil, err
	}
}

// recvFrom reads from a connected handle. A zero read on a stream socket
// with a non-empty buffer is the end of stream. The kind does not depend on
// the family, so the zero protocol value answers it.
func (b *base[P]) recvFrom(p []byte) attempt {
	var zero P
	stream := zero.Kind() == ip.KindTCP
	return func(fd int) (int, any, error) {
		n, err := transport.Recv(fd, p)
		if err == nil && n == 0 && len(p) > 0 && stream {
			return 0, nil, io.EOF
		}
		return n, nil, err
	}
}

// blocking repeats try until it stops reporting EAGAIN, waiting for
// readiness in between.
func (b *base[P]) blocking(ctx context.Context, op string, write bool, try attempt, allowed ...State) (int, any, error) {
	fd, _, err := b.handle(op, allowed...)
	if err != nil {
		return 0, nil, err
	}
	for {
		n, v, err := try(fd)
		switch {
		case err == nil:
			return n, v, nil
		case errors.Is(err, io.EOF):
			return n, v, io.EOF
		case transport.IsInterrupted(err):
		case transport.IsWouldBlock(err):
			if werr := transport.WaitIO(ctx, fd, write); werr != nil {
				return 0, nil, transport.Wrap(op, werr)
			}
		default:
			return n, v, transport.Wrap(op, err)
		}
	}
}

// async submits try to the reactor. State errors are delivered as
// completions too.
func (b *base[P]) async(kind api.OpKind, op string, dir reactor.Direction, try attempt, h reactor.Handler, allowed ...State) *reactor.Operation {
	fd, desc, err := b.handle(op, allowed...)
	if err != nil {
		return b.r.Complete(desc, kind, api.Completion{Err: err}, h)
	}
	return b.r.Submit(desc, dir, kind, func() (api.Completion, bool) {
		for {
			n, v, err := try(fd)
			switch {
			case err == nil:
				return api.Completion{N: n, Value: v}, true
			case errors.Is(err, io.EOF):
				return api.Completion{N: n, Err: io.EOF}, true
			case transport.IsInterrupted(err):
			case transport.IsWouldBlock(err):
				return api.Completion{}, false
			default:
				return api.Completion{N: n, Err: transport.Wrap(op, err)}, true
			}
		}
	}, h)
}

// handle returns the handle and descriptor if the socket is in one of the
// allowed states (any open state when none are given).
func (b *base[P]) handle(op string, allowed ...State) (int, *reactor.Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.state == Closed:
		return -1, b.desc, api.Wrap(api.ErrCodeClosed, op, nil)
	case b.state == Unopened:
		return -1, nil, api.Wrap(api.ErrCodeInvalidState, op, nil).WithContext("state", b.state.String())
	case len(allowed) > 0 && !slices.Contains(allowed, b.state):
		return -1, b.desc, api.Wrap(api.ErrCodeInvalidState, op, nil).WithContext("state", b.state.String())
	}
	return b.fd, b.desc, nil
}

// Shutdown disables sends, receives or both on a connected socket.
func (b *base[P]) Shutdown(how transport.ShutdownHow) error {
	fd, _, err := b.handle("shutdown", Connected)
	if err != nil {
		return err
	}
	return transport.Wrap("shutdown", transport.Shutdown(fd, how))
}

// Close cancels every pending operation, each with exactly one Cancelled
// completion, then releases the handle. Repeated calls return nil.
func (b *base[P]) Close() error {
	b.mu.Lock()
	if b.state == Closed || b.state == Unopened {
		b.state = Closed
		b.mu.Unlock()
		return nil
	}
	fd, desc := b.fd, b.desc
	b.state, b.fd = Closed, -1
	b.mu.Unlock()

	err := b.r.Deregister(desc)
	err = multierr.Append(err, transport.Wrap("close", transport.Close(fd)))
	b.log.Debug("socket closed", zap.Int("fd", fd), zap.Error(err))
	return err
}

// State returns the lifecycle state.
func (b *base[P]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *base[P]) setState(s State) {
	b.mu.Lock()
	if b.state != Closed {
		b.state = s
	}
	b.mu.Unlock()
}

// IsOpen reports whether the socket holds a handle.
func (b *base[P]) IsOpen() bool {
	s := b.State()
	return s != Unopened && s != Closed
}

// Protocol returns the protocol the socket was opened with.
func (b *base[P]) Protocol() P {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.proto
}

// Descriptor implements sockopt.Handle.
func (b *base[P]) Descriptor() ip.Descriptor { return b.Protocol() }

// NativeHandle returns the OS handle, or -1 when not open.
func (b *base[P]) NativeHandle() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fd
}

// Reactor returns the reactor the socket is registered with.
func (b *base[P]) Reactor() *reactor.Reactor { return b.r }

func (b *base[P]) descriptor() *reactor.Descriptor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.desc
}

// SetOption applies opt immediately.
func (b *base[P]) SetOption(opt sockopt.Option) error {
	return sockopt.Set(b, opt)
}

// GetOption reads the current value of opt.
func (b *base[P]) GetOption(opt sockopt.Getter) error {
	return sockopt.Get(b, opt)
}

// LocalEndpoint returns the bound address.
func (b *base[P]) LocalEndpoint() (ip.Endpoint[P], error) {
	fd, _, err := b.handle("getsockname")
	if err != nil {
		return ip.Endpoint[P]{}, err
	}
	pe, err := transport.LocalAddr(fd)
	if err != nil {
		return ip.Endpoint[P]{}, transport.Wrap("getsockname", err)
	}
	return ip.EndpointOf[P](pe.Addr, pe.Port), nil
}

// RemoteEndpoint returns the connected peer.
func (b *base[P]) RemoteEndpoint() (ip.Endpoint[P], error) {
	fd, _, err := b.handle("getpeername", Connected)
	if err != nil {
		return ip.Endpoint[P]{}, err
	}
	pe, err := transport.PeerAddr(fd)
	if err != nil {
		return ip.Endpoint[P]{}, transport.Wrap("getpeername", err)
	}
	return ip.EndpointOf[P](pe.Addr, pe.Port), nil
}

// Available reports how many bytes can be read without blocking.
func (b *base[P]) Available() (int, error) {
	fd, _, err := b.handle("available")
	if err != nil {
		return 0, err
	}
	n, err := transport.Available(fd)
	return n, transport.Wrap("available", err)
}
