// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the naming backend and
// the metrics sink.

package fake

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ip"
	"github.com/momentics/hioload-aio/resolver"
)

// Backend is a fake implementation of resolver.Backend backed by maps.
type Backend struct {
	mu       sync.Mutex
	hosts    map[string]resolver.Answer
	services map[string]uint16
	hostErr  error
	delay    time.Duration
	lookups  atomic.Int64
}

// NewBackend creates an empty fake backend.
func NewBackend() *Backend {
	return &Backend{
		hosts:    make(map[string]resolver.Answer),
		services: make(map[string]uint16),
	}
}

// AddHost registers addrs for host, in the given order.
func (b *Backend) AddHost(host, canonical string, addrs ...ip.Addr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hosts[host] = resolver.Answer{Addrs: append([]ip.Addr(nil), addrs...), CanonicalName: canonical}
}

// AddService registers a named service port for network ("tcp"/"udp").
func (b *Backend) AddService(network, service string, port uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.services[network+"/"+service] = port
}

// SetHostError makes every LookupHost fail with err.
func (b *Backend) SetHostError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hostErr = err
}

// SetDelay makes LookupHost wait d, or until the context ends.
func (b *Backend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// Lookups reports how many LookupHost calls reached the backend.
func (b *Backend) Lookups() int64 { return b.lookups.Load() }

// LookupHost implements resolver.Backend.
func (b *Backend) LookupHost(ctx context.Context, host string, opts resolver.LookupOptions) (resolver.Answer, error) {
	b.lookups.Add(1)
	b.mu.Lock()
	ans, ok := b.hosts[host]
	err, delay := b.hostErr, b.delay
	b.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return resolver.Answer{}, ctx.Err()
		case <-t.C:
		}
	}
	if err != nil {
		return resolver.Answer{}, err
	}
	if !ok {
		return resolver.Answer{}, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	if !opts.Canonical {
		ans.CanonicalName = ""
	}
	return ans, nil
}

// LookupPort implements resolver.Backend.
func (b *Backend) LookupPort(_ context.Context, network, service string) (uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.services[network+"/"+service]; ok {
		return p, nil
	}
	return 0, &api.ResolutionError{Kind: api.ResolutionNotFound, Query: network + "/" + service}
}
