// File: resolver/resolver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package resolver

import (
	"context"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ip"
	"github.com/momentics/hioload-aio/reactor"
	"go.uber.org/zap"
)

// Resolver resolves queries into endpoints of protocol P.
type Resolver[P ip.Protocol[P]] struct {
	r       *reactor.Reactor
	backend Backend
	timeout time.Duration
	log     *zap.Logger
}

// Option customises a Resolver.
type Option func(*settings)

type settings struct {
	backend Backend
	timeout time.Duration
	log     *zap.Logger
}

// WithBackend replaces the platform backend.
func WithBackend(b Backend) Option {
	return func(s *settings) { s.backend = b }
}

// WithTimeout bounds each lookup; zero leaves it to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithLogger sets the logger; the reactor's logger is the default.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.log = l }
}

// New creates a resolver bound to r.
func New[P ip.Protocol[P]](r *reactor.Reactor, opts ...Option) *Resolver[P] {
	s := settings{log: r.Logger()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.backend == nil {
		s.backend = NewSystemBackend()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return &Resolver[P]{r: r, backend: s.backend, timeout: s.timeout, log: s.log}
}

// Reactor returns the reactor async operations complete on.
func (rs *Resolver[P]) Reactor() *reactor.Reactor { return rs.r }

// Backend returns the naming backend.
func (rs *Resolver[P]) Backend() Backend { return rs.backend }

// Resolve runs q and returns its results in backend order. An empty result
// fails with a NotFound ResolutionError.
func (rs *Resolver[P]) Resolve(ctx context.Context, q Query) (*Iter[P], error) {
	if rs.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rs.timeout)
		defer cancel()
	}
	port, err := rs.port(ctx, q)
	if err != nil {
		return nil, err
	}
	addrs, cname, err := rs.addrs(ctx, q)
	if err != nil {
		rs.log.Debug("resolve failed", zap.Stringer("query", q), zap.Error(err))
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, notFound(q, nil)
	}
	return newIter[P](q, addrs, port, cname), nil
}

// AsyncResolve runs q off the reactor and completes h with an *Iter[P] in
// Completion.Value. Cancel aborts the lookup.
func (rs *Resolver[P]) AsyncResolve(q Query, h reactor.Handler) *reactor.Operation {
	ctx, cancel := context.WithCancel(context.Background())
	op := rs.r.Begin(api.OpResolve, h, cancel)
	if !op.Pending() {
		cancel()
		return op
	}
	go func() {
		defer cancel()
		it, err := rs.Resolve(ctx, q)
		if err != nil {
			op.Finish(api.Completion{Err: err})
			return
		}
		op.Finish(api.Completion{N: it.Remaining(), Value: it})
	}()
	return op
}

func (rs *Resolver[P]) port(ctx context.Context, q Query) (uint16, error) {
	if p, ok := numericPort(q.Service); ok {
		return p, nil
	}
	var zero P
	network := "tcp"
	switch zero.Kind() {
	case ip.KindUDP:
		network = "udp"
	case ip.KindICMP:
		return 0, notFound(q, api.NewError(api.ErrCodeInvalidValue, "ICMP takes no named service"))
	}
	p, err := rs.backend.LookupPort(ctx, network, q.Service)
	if err != nil {
		return 0, classify(q, err)
	}
	return p, nil
}

func (rs *Resolver[P]) addrs(ctx context.Context, q Query) ([]ip.Addr, string, error) {
	if q.Host == "" {
		var out []ip.Addr
		for _, f := range q.families() {
			if q.Passive {
				out = append(out, ip.Any(f))
			} else {
				out = append(out, ip.Loopback(f))
			}
		}
		return out, "", nil
	}
	if a, err := ip.ParseAddr(q.Host); err == nil {
		if !q.wants(a.Family()) {
			return nil, "", nil
		}
		return []ip.Addr{a}, q.Host, nil
	}
	ans, err := rs.backend.LookupHost(ctx, q.Host, LookupOptions{Family: q.Family, Canonical: q.Canonical})
	if err != nil {
		return nil, "", classify(q, err)
	}
	out := ans.Addrs[:0:0]
	for _, a := range ans.Addrs {
		if a.IsValid() && q.wants(a.Family()) {
			out = append(out, a)
		}
	}
	return out, ans.CanonicalName, nil
}
