// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Run loop, ready queue and outstanding work accounting.

package reactor

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eapache/queue"
	"github.com/google/uuid"
	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/transport"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// task is one unit on the ready queue. It returns the number of user
// handlers it ran.
type task func() int

// Reactor demultiplexes readiness events for its registered descriptors
// and dispatches operation completions. Any number of goroutines may drive
// it; only one of them blocks in the poller at a time.
type Reactor struct {
	id      string
	log     *zap.Logger
	metrics api.MetricsSink
	clock   clock.Clock
	poller  *transport.Poller
	events  []transport.Event

	mu      sync.Mutex
	cond    *sync.Cond
	ready   *queue.Queue
	descs   map[uint64]*Descriptor
	loose   map[uint64]*Operation
	polling bool
	stopped bool
	closed  bool
	drained bool

	outstanding atomic.Int64
	seq         atomic.Uint64
	tokens      atomic.Uint64
}

// Stats is a point-in-time snapshot used by debug probes.
type Stats struct {
	ID          string
	Descriptors int
	Outstanding int64
	Queued      int
	Stopped     bool
}

// New creates a reactor with its own poller.
func New(opts ...Option) (*Reactor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p, err := transport.NewPoller(o.batch)
	if err != nil {
		return nil, err
	}
	r := &Reactor{
		id:      uuid.NewString(),
		metrics: o.metrics,
		clock:   o.clock,
		poller:  p,
		events:  make([]transport.Event, o.batch),
		ready:   queue.New(),
		descs:   make(map[uint64]*Descriptor),
		loose:   make(map[uint64]*Operation),
	}
	r.log = o.logger.With(zap.String("reactor", r.id))
	r.cond = sync.NewCond(&r.mu)
	r.log.Info("reactor created", zap.Int("batch", o.batch))
	return r, nil
}

// ID returns the instance identifier used in logs.
func (r *Reactor) ID() string { return r.id }

// Clock returns the clock driving timers.
func (r *Reactor) Clock() clock.Clock { return r.clock }

// Logger returns the reactor's logger.
func (r *Reactor) Logger() *zap.Logger { return r.log }

// Run dispatches completions until there is no outstanding work or Stop is
// called. It returns the number of handlers run.
func (r *Reactor) Run() int {
	total := 0
	for {
		n := r.do(true)
		if n == 0 {
			return total
		}
		total += n
	}
}

// RunOne blocks until at most one handler has run.
func (r *Reactor) RunOne() int { return r.do(true) }

// Poll runs every handler that is ready without blocking.
func (r *Reactor) Poll() int {
	total := 0
	for {
		n := r.do(false)
		if n == 0 {
			return total
		}
		total += n
	}
}

// PollOne runs at most one ready handler without blocking.
func (r *Reactor) PollOne() int { return r.do(false) }

// Stop makes every Run and RunOne call return as soon as possible. Pending
// operations stay queued.
func (r *Reactor) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.wakeLocked()
	r.cond.Broadcast()
	r.mu.Unlock()
	r.log.Info("reactor stopped")
}

// Stopped reports whether Stop was called since the last Restart.
func (r *Reactor) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// Restart clears the stopped flag so the reactor can be run again.
func (r *Reactor) Restart() {
	r.mu.Lock()
	r.stopped = false
	r.mu.Unlock()
}

// Post runs fn as a completion on a goroutine driving the reactor. fn is
// dropped when the reactor is already closed.
func (r *Reactor) Post(fn func()) {
	op := r.newOp(api.OpPost, nil, func(c api.Completion) {
		if c.Err == nil {
			fn()
		}
	})
	op.complete(api.Completion{})
}

// Work keeps Run from returning while held.
type Work struct {
	r    *Reactor
	once sync.Once
}

// KeepAlive registers outstanding work that ends only when Release is
// called, so Run keeps waiting for new submissions.
func (r *Reactor) KeepAlive() *Work {
	r.outstanding.Add(1)
	return &Work{r: r}
}

// Release drops the guard. Further calls are no-ops.
func (w *Work) Release() {
	w.once.Do(w.r.workDone)
}

// Stats returns a snapshot of the reactor state.
func (r *Reactor) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		ID:          r.id,
		Descriptors: len(r.descs),
		Outstanding: r.outstanding.Load(),
		Queued:      r.ready.Length(),
		Stopped:     r.stopped,
	}
}

// Close cancels every pending operation, runs the remaining completions on
// the calling goroutine and releases the poller. A goroutine blocked in the
// poller is woken first. Completions published after Close returns run on
// their own goroutine.
func (r *Reactor) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.wakeLocked()
	r.cond.Broadcast()
	descs := make([]*Descriptor, 0, len(r.descs))
	for _, d := range r.descs {
		descs = append(descs, d)
	}
	loose := make([]*Operation, 0, len(r.loose))
	for _, op := range r.loose {
		loose = append(loose, op)
	}
	r.mu.Unlock()

	var err error
	for _, d := range descs {
		err = multierr.Append(err, r.Deregister(d))
	}
	sort.Slice(loose, func(i, j int) bool { return loose[i].seq < loose[j].seq })
	for _, op := range loose {
		op.cancel()
	}
	r.drain()
	err = multierr.Append(err, r.poller.Close())
	r.log.Info("reactor closed", zap.Int("descriptors", len(descs)), zap.Int("unbound", len(loose)), zap.Error(err))
	return err
}

// drain runs queued tasks until the queue is empty and no goroutine is left
// inside the poller.
func (r *Reactor) drain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		if r.ready.Length() > 0 {
			t := r.ready.Remove().(task)
			r.mu.Unlock()
			t()
			r.mu.Lock()
			continue
		}
		if !r.polling {
			r.drained = true
			return
		}
		r.cond.Wait()
	}
}

// do is the shared body of the run variants. It returns once a handler has
// run (1) or when there is nothing more to do (0).
func (r *Reactor) do(block bool) int {
	polled := false
	r.mu.Lock()
	for {
		if r.stopped || r.closed {
			r.mu.Unlock()
			return 0
		}
		if r.ready.Length() > 0 {
			t := r.ready.Remove().(task)
			r.mu.Unlock()
			if n := t(); n > 0 {
				return n
			}
			r.mu.Lock()
			continue
		}
		if r.outstanding.Load() == 0 {
			r.mu.Unlock()
			return 0
		}
		if r.polling {
			if !block {
				r.mu.Unlock()
				return 0
			}
			r.cond.Wait()
			continue
		}
		if polled && !block {
			r.mu.Unlock()
			return 0
		}
		timeout := time.Duration(-1)
		if !block {
			timeout = 0
		}
		r.polling = true
		r.mu.Unlock()

		n, err := r.poller.Wait(timeout, r.events)

		r.mu.Lock()
		r.polling = false
		polled = true
		if err != nil {
			r.log.Error("poller wait failed", zap.Error(err))
			r.cond.Broadcast()
			r.mu.Unlock()
			return 0
		}
		for i := 0; i < n; i++ {
			r.dispatchLocked(r.events[i])
		}
		r.metrics.PollCycle(n)
		r.cond.Broadcast()
	}
}

func (r *Reactor) dispatchLocked(ev transport.Event) {
	d, ok := r.descs[ev.Token]
	if !ok {
		return
	}
	if ev.Readable || ev.Hangup || ev.Error {
		d.schedule(Read, true)
	}
	if ev.Writable || ev.Hangup || ev.Error {
		d.schedule(Write, true)
	}
}

func (r *Reactor) enqueue(t task) {
	r.mu.Lock()
	r.enqueueLocked(t)
	r.mu.Unlock()
}

func (r *Reactor) enqueueLocked(t task) {
	if r.drained {
		go t()
		return
	}
	r.ready.Add(t)
	r.wakeLocked()
	r.cond.Signal()
}

func (r *Reactor) wakeLocked() {
	if !r.polling {
		return
	}
	if err := r.poller.Wake(); err != nil {
		r.log.Warn("poller wake failed", zap.Error(err))
	}
}

func (r *Reactor) workDone() {
	if r.outstanding.Add(-1) != 0 {
		return
	}
	r.mu.Lock()
	r.wakeLocked()
	r.cond.Broadcast()
	r.mu.Unlock()
}

// call runs a user handler, keeping the reactor alive on panic.
func (r *Reactor) call(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("handler panic recovered", zap.Any("panic", p), zap.Stack("stack"))
		}
	}()
	fn()
}
