// File: reactor/descriptor.go
// Author: momentics <momentics@gmail.com>
//
// Per-handle registration state: operation FIFOs for each direction and the
// strand used to deliver their completions.

package reactor

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-aio/api"
	"go.uber.org/zap"
)

// Direction selects which readiness an operation waits for.
type Direction int

const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// Descriptor is a handle registered with a Reactor. The mutex is held while
// an operation's non-blocking attempt runs, so attempts, cancellation and
// deregistration on the same handle are serialised.
type Descriptor struct {
	r      *Reactor
	fd     int
	token  uint64
	strand *Strand

	mu     sync.Mutex
	ops    [2]*queue.Queue
	closed bool

	scheduled [2]atomic.Bool
}

// FD returns the registered OS handle.
func (d *Descriptor) FD() int { return d.fd }

// Strand returns the strand that delivers this descriptor's completions.
func (d *Descriptor) Strand() *Strand { return d.strand }

// Pending reports the number of queued operations in direction dir,
// including cancelled ones not yet discarded.
func (d *Descriptor) Pending(dir Direction) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ops[dir].Length()
}

// schedule queues a drain pass for dir unless one is already waiting.
func (d *Descriptor) schedule(dir Direction, locked bool) {
	if !d.scheduled[dir].CompareAndSwap(false, true) {
		return
	}
	t := func() int { return d.drain(dir) }
	if locked {
		d.r.enqueueLocked(t)
	} else {
		d.r.enqueue(t)
	}
}

// drain attempts queued operations in FIFO order until one would block.
func (d *Descriptor) drain(dir Direction) int {
	d.scheduled[dir].Store(false)
	d.mu.Lock()
	defer d.mu.Unlock()
	q := d.ops[dir]
	for q.Length() > 0 {
		op := q.Peek().(*Operation)
		if !op.Pending() {
			q.Remove()
			continue
		}
		c, ok := op.perform()
		if !ok {
			break
		}
		q.Remove()
		op.complete(c)
	}
	return 0
}

// cancelAll completes every pending operation with a cancellation, in
// submission order. Caller holds d.mu.
func (d *Descriptor) cancelAll() int {
	var pending []*Operation
	for dir := range d.ops {
		q := d.ops[dir]
		for q.Length() > 0 {
			op := q.Remove().(*Operation)
			if op.Pending() {
				pending = append(pending, op)
			}
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })
	n := 0
	for _, op := range pending {
		if op.complete(api.Completion{Err: api.Cancelled(string(op.kind))}) {
			n++
		}
	}
	return n
}

// Register adds fd to the poller. Failure is reported synchronously and
// leaves fd untouched.
func (r *Reactor) Register(fd int) (*Descriptor, error) {
	d := &Descriptor{
		r:      r,
		fd:     fd,
		token:  r.tokens.Add(1),
		strand: NewStrand(r),
		ops:    [2]*queue.Queue{queue.New(), queue.New()},
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, api.Wrap(api.ErrCodeClosed, "register", nil)
	}
	r.descs[d.token] = d
	n := len(r.descs)
	r.mu.Unlock()

	if err := r.poller.Add(fd, d.token); err != nil {
		r.mu.Lock()
		delete(r.descs, d.token)
		r.mu.Unlock()
		return nil, api.Wrap(api.ErrCodeResourceExhausted, "register", err).WithContext("fd", fd)
	}
	r.metrics.Descriptors(n)
	r.log.Debug("descriptor registered", zap.Int("fd", fd), zap.Uint64("token", d.token))
	return d, nil
}

// Deregister cancels every pending operation on d and removes it from the
// poller. It must be called before the handle is closed. Repeated calls are
// no-ops.
func (r *Reactor) Deregister(d *Descriptor) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	cancelled := d.cancelAll()
	d.mu.Unlock()

	r.mu.Lock()
	delete(r.descs, d.token)
	n := len(r.descs)
	r.mu.Unlock()

	r.metrics.Descriptors(n)
	r.log.Debug("descriptor deregistered", zap.Int("fd", d.fd), zap.Int("cancelled", cancelled))
	return r.poller.Remove(d.fd)
}

// Submit queues an operation on d for direction dir. perform is first
// attempted on a later pass of the reactor, never inline. A submission on a
// deregistered descriptor completes with api.ErrClosed.
func (r *Reactor) Submit(d *Descriptor, dir Direction, kind api.OpKind, perform Perform, h Handler) *Operation {
	op := r.newOp(kind, d, h)
	op.perform = perform
	d.mu.Lock()
	if d.closed {
		op.complete(api.Completion{Err: api.Wrap(api.ErrCodeClosed, string(kind), nil)})
		d.mu.Unlock()
		return op
	}
	d.ops[dir].Add(op)
	d.mu.Unlock()
	d.schedule(dir, false)
	return op
}

// Complete submits an operation whose result is already known. Delivery
// still goes through the reactor and the descriptor's strand.
func (r *Reactor) Complete(d *Descriptor, kind api.OpKind, c api.Completion, h Handler) *Operation {
	op := r.newOp(kind, d, h)
	op.complete(c)
	return op
}
