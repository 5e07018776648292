// File: resolver/backend.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package resolver

import (
	"context"
	"net"

	"github.com/momentics/hioload-aio/ip"
)

// LookupOptions narrow a host lookup.
type LookupOptions struct {
	Family    ip.Family
	Canonical bool
}

// Answer is the result of a host lookup in backend order.
type Answer struct {
	Addrs         []ip.Addr
	CanonicalName string
}

// Backend is the naming capability a Resolver delegates to.
type Backend interface {
	LookupHost(ctx context.Context, host string, opts LookupOptions) (Answer, error)
	LookupPort(ctx context.Context, network, service string) (uint16, error)
}

// SystemBackend uses the platform resolver through net.Resolver.
type SystemBackend struct {
	Resolver *net.Resolver
}

// NewSystemBackend returns a backend on net.DefaultResolver.
func NewSystemBackend() *SystemBackend {
	return &SystemBackend{Resolver: net.DefaultResolver}
}

func (b *SystemBackend) resolver() *net.Resolver {
	if b.Resolver != nil {
		return b.Resolver
	}
	return net.DefaultResolver
}

// LookupHost implements Backend.
func (b *SystemBackend) LookupHost(ctx context.Context, host string, opts LookupOptions) (Answer, error) {
	network := "ip"
	switch opts.Family {
	case ip.FamilyV4:
		network = "ip4"
	case ip.FamilyV6:
		network = "ip6"
	}
	res := b.resolver()
	nas, err := res.LookupNetIP(ctx, network, host)
	if err != nil {
		return Answer{}, err
	}
	ans := Answer{Addrs: make([]ip.Addr, 0, len(nas))}
	for _, na := range nas {
		ans.Addrs = append(ans.Addrs, ip.AddrFrom(na.Unmap()))
	}
	if opts.Canonical {
		if cname, err := res.LookupCNAME(ctx, host); err == nil {
			ans.CanonicalName = trimDot(cname)
		}
	}
	return ans, nil
}

// LookupPort implements Backend using the services database.
func (b *SystemBackend) LookupPort(ctx context.Context, network, service string) (uint16, error) {
	return lookupServicePort(ctx, b.resolver(), network, service)
}

func lookupServicePort(ctx context.Context, r *net.Resolver, network, service string) (uint16, error) {
	p, err := r.LookupPort(ctx, network, service)
	if err != nil {
		return 0, err
	}
	return uint16(p), nil
}

func trimDot(s string) string {
	if n := len(s); n > 1 && s[n-1] == '.' {
		return s[:n-1]
	}
	return s
}
