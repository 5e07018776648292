// File: resolver/query.go
// Author: momentics <momentics@gmail.com>

package resolver

import (
	"strconv"

	"github.com/momentics/hioload-aio/ip"
)

// Query describes one resolution request.
type Query struct {
	// Host is a name or numeric address. Empty means the wildcard address
	// for passive queries and the loopback address otherwise.
	Host string
	// Service is a port number or service name. Empty means port zero.
	Service string
	// Passive asks for endpoints suitable for Bind.
	Passive bool
	// Family restricts results; FamilyUnspec returns both.
	Family ip.Family
	// Canonical asks the backend for the canonical host name.
	Canonical bool
}

// NewQuery builds a connectable query.
func NewQuery(host, service string) Query {
	return Query{Host: host, Service: service}
}

// Passive builds a bindable query for service on every local address.
func Passive(service string) Query {
	return Query{Service: service, Passive: true}
}

// WithFamily returns a copy restricted to f.
func (q Query) WithFamily(f ip.Family) Query {
	q.Family = f
	return q
}

func (q Query) String() string {
	host := q.Host
	if host == "" {
		host = "*"
	}
	s := host + ":" + q.Service
	if q.Passive {
		s += " (passive)"
	}
	return s
}

func (q Query) wants(f ip.Family) bool {
	return q.Family == ip.FamilyUnspec || q.Family == f
}

// families lists the address families in result order: IPv4 first.
func (q Query) families() []ip.Family {
	switch q.Family {
	case ip.FamilyV4:
		return []ip.Family{ip.FamilyV4}
	case ip.FamilyV6:
		return []ip.Family{ip.FamilyV6}
	}
	return []ip.Family{ip.FamilyV4, ip.FamilyV6}
}

// numericPort parses a decimal service.
func numericPort(service string) (uint16, bool) {
	if service == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(service, 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}
