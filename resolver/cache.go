// File: resolver/cache.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// CachingBackend keeps successful host lookups for a TTL and coalesces
// concurrent identical lookups into one backend call.
type CachingBackend struct {
	next   Backend
	cache  *expirable.LRU[string, Answer]
	flight singleflight.Group
}

// NewCachingBackend wraps next with an LRU of size entries.
func NewCachingBackend(next Backend, size int, ttl time.Duration) *CachingBackend {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingBackend{
		next:  next,
		cache: expirable.NewLRU[string, Answer](size, nil, ttl),
	}
}

// LookupHost implements Backend.
func (b *CachingBackend) LookupHost(ctx context.Context, host string, opts LookupOptions) (Answer, error) {
	key := fmt.Sprintf("%d|%t|%s", opts.Family, opts.Canonical, host)
	if ans, ok := b.cache.Get(key); ok {
		return ans, nil
	}
	v, err, _ := b.flight.Do(key, func() (any, error) {
		ans, err := b.next.LookupHost(ctx, host, opts)
		if err != nil {
			return Answer{}, err
		}
		if len(ans.Addrs) > 0 {
			b.cache.Add(key, ans)
		}
		return ans, nil
	})
	if err != nil {
		return Answer{}, err
	}
	return v.(Answer), nil
}

// LookupPort implements Backend without caching.
func (b *CachingBackend) LookupPort(ctx context.Context, network, service string) (uint16, error) {
	return b.next.LookupPort(ctx, network, service)
}

// Len reports the number of cached answers.
func (b *CachingBackend) Len() int { return b.cache.Len() }

// Purge drops every cached answer.
func (b *CachingBackend) Purge() { b.cache.Purge() }
