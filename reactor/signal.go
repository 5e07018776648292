// File: reactor/signal.go
// Author: momentics <momentics@gmail.com>
//
// Asynchronous OS signal delivery.

package reactor

import (
	"os"
	"os/signal"
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-aio/api"
	"go.uber.org/zap"
)

// SignalSet delivers OS signals as completions. A signal that arrives while
// no wait is pending is kept and handed to the next AsyncWait.
type SignalSet struct {
	r    *Reactor
	ch   chan os.Signal
	quit chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	waiters *queue.Queue
	backlog *queue.Queue
	closed  bool
}

// NewSignalSet starts listening for sigs.
func NewSignalSet(r *Reactor, sigs ...os.Signal) *SignalSet {
	s := &SignalSet{
		r:       r,
		ch:      make(chan os.Signal, 8),
		quit:    make(chan struct{}),
		waiters: queue.New(),
		backlog: queue.New(),
	}
	signal.Notify(s.ch, sigs...)
	s.wg.Add(1)
	go s.loop()
	return s
}

// Add extends the set with more signals.
func (s *SignalSet) Add(sigs ...os.Signal) {
	signal.Notify(s.ch, sigs...)
}

// AsyncWait completes h with the next received signal in Completion.Value.
func (s *SignalSet) AsyncWait(h Handler) *Operation {
	op := s.r.newOp(api.OpSignal, nil, h)
	if !op.Pending() {
		return op
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		op.complete(api.Completion{Err: api.Cancelled(string(api.OpSignal))})
		return op
	}
	if s.backlog.Length() > 0 {
		op.complete(api.Completion{Value: s.backlog.Remove()})
		return op
	}
	s.waiters.Add(op)
	return op
}

// Cancel aborts all pending waits and returns how many were cancelled.
func (s *SignalSet) Cancel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked()
}

// Close stops signal delivery and cancels pending waits.
func (s *SignalSet) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancelLocked()
	s.mu.Unlock()
	signal.Stop(s.ch)
	close(s.quit)
	s.wg.Wait()
	return nil
}

func (s *SignalSet) cancelLocked() int {
	n := 0
	for s.waiters.Length() > 0 {
		if s.waiters.Remove().(*Operation).cancel() {
			n++
		}
	}
	return n
}

func (s *SignalSet) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case sig := <-s.ch:
			s.deliver(sig)
		}
	}
}

func (s *SignalSet) deliver(sig os.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.waiters.Length() > 0 {
		op := s.waiters.Remove().(*Operation)
		if op.complete(api.Completion{Value: sig}) {
			s.r.log.Debug("signal delivered", zap.String("signal", sig.String()))
			return
		}
	}
	s.backlog.Add(sig)
}
