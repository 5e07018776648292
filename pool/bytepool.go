// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

const (
	minClassShift = 9  // 512 B
	maxClassShift = 20 // 1 MiB
	numClasses    = maxClassShift - minClassShift + 1
)

// BytePool hands out buffers from power-of-two size classes. Requests above
// the largest class are allocated directly and never retained.
type BytePool struct {
	classes [numClasses]sync.Pool

	allocs atomic.Int64
	gets   atomic.Int64
	puts   atomic.Int64
}

// Stats counts pool traffic.
type Stats struct {
	Allocs int64 // buffers created because no pooled one was free
	Gets   int64
	Puts   int64
}

// InUse is the number of buffers handed out and not yet returned.
func (s Stats) InUse() int64 { return s.Gets - s.Puts }

// NewBytePool creates an empty pool.
func NewBytePool() *BytePool {
	return &BytePool{}
}

// Get returns a buffer of length n. Its capacity is the size class.
func (p *BytePool) Get(n int) []byte {
	p.gets.Add(1)
	c := classOf(n)
	if c < 0 {
		p.allocs.Add(1)
		return make([]byte, n)
	}
	if v := p.classes[c].Get(); v != nil {
		return (*(v.(*[]byte)))[:n]
	}
	p.allocs.Add(1)
	return make([]byte, n, 1<<(c+minClassShift))
}

// Put recycles b. Buffers whose capacity is not exactly a size class are
// dropped.
func (p *BytePool) Put(b []byte) {
	p.puts.Add(1)
	c := classOf(cap(b))
	if c < 0 || cap(b) != 1<<(c+minClassShift) {
		return
	}
	b = b[:0]
	p.classes[c].Put(&b)
}

// Stats returns a snapshot of the counters.
func (p *BytePool) Stats() Stats {
	return Stats{Allocs: p.allocs.Load(), Gets: p.gets.Load(), Puts: p.puts.Load()}
}

// classOf maps a size to its class index, or -1 when no class fits.
func classOf(n int) int {
	if n <= 1<<minClassShift {
		return 0
	}
	shift := bits.Len(uint(n - 1))
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}

var defaultPool = NewBytePool()

// Default returns the process-wide pool.
func Default() *BytePool { return defaultPool }
