// File: resolver/connect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Resolve-then-connect for stream sockets: each resolved endpoint is tried
// in order until one accepts.

package resolver

import (
	"context"
	"sync"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ip"
	"github.com/momentics/hioload-aio/reactor"
	"github.com/momentics/hioload-aio/socket"
	"go.uber.org/zap"
)

// Connection is the Completion.Value of AsyncConnect.
type Connection struct {
	Socket   *socket.TCPSocket
	Endpoint ip.TCPEndpoint
}

// Connect resolves q and connects to the first endpoint that accepts. When
// every attempt fails the last error is returned.
func Connect(ctx context.Context, rs *Resolver[ip.TCP], q Query) (*socket.TCPSocket, ip.TCPEndpoint, error) {
	it, err := rs.Resolve(ctx, q)
	if err != nil {
		return nil, ip.TCPEndpoint{}, err
	}
	var last error
	for e := range it.All() {
		s := socket.NewTCPSocket(rs.r)
		if err := s.Connect(ctx, e.Endpoint); err != nil {
			rs.log.Debug("connect attempt failed", zap.Stringer("endpoint", e.Endpoint), zap.Error(err))
			_ = s.Close()
			last = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return s, e.Endpoint, nil
	}
	return nil, ip.TCPEndpoint{}, last
}

// AsyncConnect is the asynchronous form of Connect. Cancel aborts the
// lookup or the attempt in flight.
func AsyncConnect(rs *Resolver[ip.TCP], q Query, h reactor.Handler) *reactor.Operation {
	c := &connector{rs: rs}
	ctx, cancel := context.WithCancel(context.Background())
	c.op = rs.r.Begin(api.OpConnect, h, func() {
		cancel()
		c.abort()
	})
	if !c.op.Pending() {
		cancel()
		return c.op
	}
	go func() {
		defer cancel()
		it, err := rs.Resolve(ctx, q)
		if err != nil {
			c.op.Finish(api.Completion{Err: err})
			return
		}
		rs.r.Post(func() { c.next(it, nil) })
	}()
	return c.op
}

type connector struct {
	rs *Resolver[ip.TCP]
	op *reactor.Operation

	mu      sync.Mutex
	current *socket.TCPSocket
	aborted bool
}

func (c *connector) next(it *Iter[ip.TCP], last error) {
	if !c.op.Pending() {
		return
	}
	if !it.Next() {
		c.op.Finish(api.Completion{Err: last})
		return
	}
	ep := it.Entry().Endpoint
	s := socket.NewTCPSocket(c.rs.r)
	c.mu.Lock()
	if c.aborted {
		c.mu.Unlock()
		return
	}
	c.current = s
	c.mu.Unlock()

	s.AsyncConnect(ep, func(res api.Completion) {
		c.mu.Lock()
		c.current = nil
		c.mu.Unlock()
		if res.Err != nil {
			_ = s.Close()
			c.next(it, res.Err)
			return
		}
		if !c.op.Finish(api.Completion{Value: Connection{Socket: s, Endpoint: ep}}) {
			_ = s.Close()
		}
	})
}

func (c *connector) abort() {
	c.mu.Lock()
	c.aborted = true
	s := c.current
	c.mu.Unlock()
	if s != nil {
		_ = s.Close()
	}
}
