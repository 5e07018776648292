// File: reactor/timer.go
// Author: momentics <momentics@gmail.com>
//
// Deadline timers. Each wait is an Operation completed by the reactor's
// clock, so a mock clock drives them deterministically in tests.

package reactor

import (
	"sync"
	"time"

	"github.com/momentics/hioload-aio/api"
)

// Timer issues asynchronous waits against the reactor clock. Waits on one
// Timer are independent; Cancel aborts all of them.
type Timer struct {
	r       *Reactor
	mu      sync.Mutex
	pending map[*Operation]struct{}
}

// NewTimer creates a timer bound to r.
func NewTimer(r *Reactor) *Timer {
	return &Timer{r: r, pending: make(map[*Operation]struct{})}
}

// AsyncWait completes h after d elapses. A non-positive d completes on the
// next reactor pass.
func (t *Timer) AsyncWait(d time.Duration, h Handler) *Operation {
	op := t.r.newOp(api.OpTimer, nil, h)
	if !op.Pending() {
		return op
	}
	if d <= 0 {
		op.complete(api.Completion{})
		return op
	}
	t.mu.Lock()
	t.pending[op] = struct{}{}
	ct := t.r.clock.AfterFunc(d, func() {
		t.forget(op)
		op.complete(api.Completion{})
	})
	op.stop = func() {
		t.forget(op)
		ct.Stop()
	}
	t.mu.Unlock()
	return op
}

// AsyncWaitUntil completes h at deadline.
func (t *Timer) AsyncWaitUntil(deadline time.Time, h Handler) *Operation {
	return t.AsyncWait(deadline.Sub(t.r.clock.Now()), h)
}

// Cancel aborts every pending wait and returns how many were cancelled.
func (t *Timer) Cancel() int {
	t.mu.Lock()
	ops := make([]*Operation, 0, len(t.pending))
	for op := range t.pending {
		ops = append(ops, op)
	}
	t.mu.Unlock()
	n := 0
	for _, op := range ops {
		if op.cancel() {
			n++
		}
	}
	return n
}

// Pending reports the number of waits that have not fired.
func (t *Timer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Timer) forget(op *Operation) {
	t.mu.Lock()
	delete(t.pending, op)
	t.mu.Unlock()
}
