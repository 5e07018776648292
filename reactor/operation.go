// File: reactor/operation.go
// Author: momentics <momentics@gmail.com>
//
// One-shot asynchronous operation token.

package reactor

import (
	"sync/atomic"

	"github.com/momentics/hioload-aio/api"
	"go.uber.org/zap"
)

// Handler consumes a completion. It runs on a goroutine driving the reactor.
type Handler func(api.Completion)

// Perform attempts an operation without blocking. It reports false when the
// handle is not ready yet; the attempt is then repeated on the next
// readiness edge.
type Perform func() (api.Completion, bool)

const (
	opPending int32 = iota
	opCompleted
)

// Operation is the cancellation and completion token returned by every
// asynchronous submission. Its completion is published exactly once, on
// Done and to the handler, whichever of result or cancellation comes first.
type Operation struct {
	r       *Reactor
	kind    api.OpKind
	seq     uint64
	desc    *Descriptor
	perform Perform
	handler Handler
	stop    func()

	state  atomic.Int32
	result api.Completion
	done   chan struct{}
}

var _ api.Cancelable = (*Operation)(nil)

func (r *Reactor) newOp(kind api.OpKind, d *Descriptor, h Handler) *Operation {
	op := &Operation{
		r:       r,
		kind:    kind,
		seq:     r.seq.Add(1),
		desc:    d,
		handler: h,
		done:    make(chan struct{}),
	}
	r.outstanding.Add(1)
	r.metrics.OpSubmitted(kind)

	r.mu.Lock()
	closed := r.closed
	if !closed && d == nil {
		r.loose[op.seq] = op
	}
	r.mu.Unlock()
	if closed {
		op.complete(api.Completion{Err: api.Wrap(api.ErrCodeClosed, string(kind), nil)})
	}
	return op
}

// Kind reports the operation class.
func (op *Operation) Kind() api.OpKind { return op.kind }

// Done is closed once the completion has been dispatched by the reactor.
func (op *Operation) Done() <-chan struct{} { return op.done }

// Result returns the completion. It is valid once Done is closed. An
// operation rejected at submission (validation failure, closed socket or
// reactor) already carries its result when the submitting call returns,
// with Pending reporting false; the handler still runs once, later.
func (op *Operation) Result() api.Completion { return op.result }

// Err returns the completion error under the same rules as Result.
func (op *Operation) Err() error { return op.result.Err }

// Pending reports whether neither a result nor a cancellation has won yet.
func (op *Operation) Pending() bool { return op.state.Load() == opPending }

// Cancel requests cancellation. If the operation already has a result this
// is a no-op; otherwise the handler receives exactly one Cancelled
// completion.
func (op *Operation) Cancel() error {
	op.cancel()
	return nil
}

// cancel publishes the Cancelled result before running stop.
func (op *Operation) cancel() bool {
	if d := op.desc; d != nil {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	if !op.complete(api.Completion{Err: api.Cancelled(string(op.kind))}) {
		return false
	}
	if op.stop != nil {
		op.stop()
	}
	op.r.log.Debug("operation cancelled", zap.String("kind", string(op.kind)), zap.Uint64("seq", op.seq))
	return true
}

// complete publishes c if no other result won and schedules delivery.
func (op *Operation) complete(c api.Completion) bool {
	if !op.state.CompareAndSwap(opPending, opCompleted) {
		return false
	}
	op.result = c
	if op.desc != nil {
		op.desc.strand.post(op.invoke)
		return true
	}
	r := op.r
	r.mu.Lock()
	delete(r.loose, op.seq)
	r.enqueueLocked(func() int {
		op.invoke()
		return 1
	})
	r.mu.Unlock()
	return true
}

func (op *Operation) invoke() {
	defer op.r.workDone()
	close(op.done)
	op.r.metrics.OpCompleted(op.kind, op.result.Err)
	if op.handler != nil {
		op.r.call(func() { op.handler(op.result) })
	}
}

// Begin creates a pending operation completed later by Finish, typically
// from a goroutine doing work the poller cannot watch (name lookups).
// stop, when non-nil, runs once a Cancel has won.
func (r *Reactor) Begin(kind api.OpKind, h Handler, stop func()) *Operation {
	op := r.newOp(kind, nil, h)
	op.stop = stop
	return op
}

// Finish publishes c unless the operation already completed. It reports
// whether c won.
func (op *Operation) Finish(c api.Completion) bool {
	return op.complete(c)
}
