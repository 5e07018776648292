// File: resolver/dns.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Direct DNS backend. Wire encoding is left to github.com/miekg/dns.

package resolver

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ip"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultResolvConf is read when a DNSBackend has no servers configured.
const DefaultResolvConf = "/etc/resolv.conf"

// DNSBackend queries DNS servers for A and AAAA records.
type DNSBackend struct {
	servers []string
	client  *dns.Client
	log     *zap.Logger
}

// NewDNSBackend creates a backend asking servers ("host:port") in order.
// With no servers the nameservers of DefaultResolvConf are used.
func NewDNSBackend(servers []string, timeout time.Duration, log *zap.Logger) (*DNSBackend, error) {
	if len(servers) == 0 {
		cfg, err := dns.ClientConfigFromFile(DefaultResolvConf)
		if err != nil {
			return nil, api.Wrap(api.ErrCodeInvalidValue, "dns_config", err)
		}
		for _, s := range cfg.Servers {
			servers = append(servers, net.JoinHostPort(s, cfg.Port))
		}
	}
	if len(servers) == 0 {
		return nil, api.NewError(api.ErrCodeInvalidValue, "no DNS servers configured")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DNSBackend{
		servers: servers,
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		log:     log,
	}, nil
}

// Servers returns the configured server list.
func (b *DNSBackend) Servers() []string { return append([]string(nil), b.servers...) }

// LookupHost implements Backend. A records come before AAAA records.
func (b *DNSBackend) LookupHost(ctx context.Context, host string, opts LookupOptions) (Answer, error) {
	var ans Answer
	var errs error
	found := false
	for _, qt := range qtypes(opts.Family) {
		addrs, cname, err := b.query(ctx, host, qt)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		found = true
		ans.Addrs = append(ans.Addrs, addrs...)
		if ans.CanonicalName == "" {
			ans.CanonicalName = cname
		}
	}
	if !found {
		return Answer{}, errs
	}
	if !opts.Canonical {
		ans.CanonicalName = ""
	}
	return ans, nil
}

// LookupPort implements Backend; DNS carries no port data so the local
// services database is consulted.
func (b *DNSBackend) LookupPort(ctx context.Context, network, service string) (uint16, error) {
	return lookupServicePort(ctx, net.DefaultResolver, network, service)
}

func qtypes(f ip.Family) []uint16 {
	switch f {
	case ip.FamilyV4:
		return []uint16{dns.TypeA}
	case ip.FamilyV6:
		return []uint16{dns.TypeAAAA}
	}
	return []uint16{dns.TypeA, dns.TypeAAAA}
}

// query asks each server in turn until one answers. NXDOMAIN is final.
func (b *DNSBackend) query(ctx context.Context, host string, qtype uint16) ([]ip.Addr, string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	var errs error
	for _, server := range b.servers {
		in, _, err := b.client.ExchangeContext(ctx, m, server)
		if err != nil {
			b.log.Debug("dns exchange failed", zap.String("server", server), zap.Error(err))
			errs = multierr.Append(errs, err)
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			continue
		}
		switch in.Rcode {
		case dns.RcodeSuccess:
			addrs, cname := parseAnswer(in, host)
			return addrs, cname, nil
		case dns.RcodeNameError:
			return nil, "", &ResolutionError{Kind: NotFound, Query: host}
		default:
			errs = multierr.Append(errs, api.NewError(api.ErrCodeResolution, dns.RcodeToString[in.Rcode]).WithContext("server", server))
		}
	}
	return nil, "", &ResolutionError{Kind: Transport, Query: host, Err: errs}
}

func parseAnswer(in *dns.Msg, host string) ([]ip.Addr, string) {
	var addrs []ip.Addr
	cname := ""
	for _, rr := range in.Answer {
		switch v := rr.(type) {
		case *dns.A:
			if a, ok := ip.AddrFromIP(v.A); ok {
				addrs = append(addrs, a)
				cname = trimDot(v.Hdr.Name)
			}
		case *dns.AAAA:
			if a, ok := ip.AddrFromSlice(v.AAAA.To16()); ok {
				addrs = append(addrs, a)
				cname = trimDot(v.Hdr.Name)
			}
		}
	}
	if cname == "" {
		cname = host
	}
	return addrs, cname
}
