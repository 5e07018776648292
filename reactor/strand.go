// File: reactor/strand.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-aio/api"
)

// Strand serialises the functions posted to it: at most one runs at a time,
// in posting order, on whichever goroutine drives the reactor.
type Strand struct {
	r       *Reactor
	mu      sync.Mutex
	q       *queue.Queue
	running bool
}

// NewStrand creates a strand bound to r.
func NewStrand(r *Reactor) *Strand {
	return &Strand{r: r, q: queue.New()}
}

// Post queues fn; it counts as outstanding work until it has run.
func (s *Strand) Post(fn func()) {
	s.r.outstanding.Add(1)
	s.r.metrics.OpSubmitted(api.OpPost)
	s.post(func() {
		defer s.r.workDone()
		s.r.metrics.OpCompleted(api.OpPost, nil)
		s.r.call(fn)
	})
}

func (s *Strand) post(fn func()) {
	s.mu.Lock()
	s.q.Add(fn)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	s.r.enqueue(s.step)
}

// step runs one queued function and reschedules itself while work remains,
// so other strands interleave fairly.
func (s *Strand) step() int {
	s.mu.Lock()
	fn := s.q.Remove().(func())
	s.mu.Unlock()

	fn()

	s.mu.Lock()
	if s.q.Length() == 0 {
		s.running = false
		s.mu.Unlock()
		return 1
	}
	s.mu.Unlock()
	s.r.enqueue(s.step)
	return 1
}
