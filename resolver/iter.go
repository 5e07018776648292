// File: resolver/iter.go
// Author: momentics <momentics@gmail.com>

package resolver

import (
	"iter"

	"github.com/momentics/hioload-aio/ip"
)

// Entry is one resolved endpoint.
type Entry[P ip.Protocol[P]] struct {
	Endpoint      ip.Endpoint[P]
	CanonicalName string
	Host          string
	Service       string
}

// Protocol returns the protocol of the entry's endpoint.
func (e Entry[P]) Protocol() P { return e.Endpoint.Protocol() }

// Iter walks resolution results once, in backend order. Endpoints are
// built as the iterator advances. Resolve again to restart.
type Iter[P ip.Protocol[P]] struct {
	addrs []ip.Addr
	port  uint16
	q     Query
	cname string
	pos   int
	cur   Entry[P]
}

func newIter[P ip.Protocol[P]](q Query, addrs []ip.Addr, port uint16, cname string) *Iter[P] {
	return &Iter[P]{addrs: addrs, port: port, q: q, cname: cname}
}

// Next advances to the next entry.
func (it *Iter[P]) Next() bool {
	if it.pos >= len(it.addrs) {
		return false
	}
	a := it.addrs[it.pos]
	it.pos++
	it.cur = Entry[P]{
		Endpoint:      ip.EndpointOf[P](a, it.port),
		CanonicalName: it.cname,
		Host:          it.q.Host,
		Service:       it.q.Service,
	}
	return true
}

// Entry returns the entry Next moved to.
func (it *Iter[P]) Entry() Entry[P] { return it.cur }

// Remaining reports how many entries Next has yet to return.
func (it *Iter[P]) Remaining() int { return len(it.addrs) - it.pos }

// All adapts the iterator for range loops. It consumes the iterator.
func (it *Iter[P]) All() iter.Seq[Entry[P]] {
	return func(yield func(Entry[P]) bool) {
		for it.Next() {
			if !yield(it.cur) {
				return
			}
		}
	}
}

// Endpoints drains the iterator into a slice.
func (it *Iter[P]) Endpoints() []ip.Endpoint[P] {
	var out []ip.Endpoint[P]
	for e := range it.All() {
		out = append(out, e.Endpoint)
	}
	return out
}
