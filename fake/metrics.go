// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"errors"
	"sync"

	"github.com/momentics/hioload-aio/api"
)

// Counts is a copy of what a Metrics recorder has seen.
type Counts struct {
	Submitted  map[api.OpKind]int
	Completed  map[api.OpKind]int
	Cancelled  int
	Failed     int
	Polls      int
	Registered int
}

// Metrics records sink events for assertions.
type Metrics struct {
	mu sync.Mutex
	c  Counts
}

// NewMetrics creates an empty recorder.
func NewMetrics() *Metrics {
	return &Metrics{c: Counts{Submitted: map[api.OpKind]int{}, Completed: map[api.OpKind]int{}}}
}

func (m *Metrics) OpSubmitted(kind api.OpKind) {
	m.mu.Lock()
	m.c.Submitted[kind]++
	m.mu.Unlock()
}

func (m *Metrics) OpCompleted(kind api.OpKind, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Completed[kind]++
	switch {
	case err == nil:
	case errors.Is(err, api.ErrCancelled):
		m.c.Cancelled++
	default:
		m.c.Failed++
	}
}

func (m *Metrics) PollCycle(int) {
	m.mu.Lock()
	m.c.Polls++
	m.mu.Unlock()
}

func (m *Metrics) Descriptors(n int) {
	m.mu.Lock()
	m.c.Registered = n
	m.mu.Unlock()
}

// Snapshot returns a copy safe to read while the reactor runs.
func (m *Metrics) Snapshot() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.c
	s.Submitted = make(map[api.OpKind]int, len(m.c.Submitted))
	for k, v := range m.c.Submitted {
		s.Submitted[k] = v
	}
	s.Completed = make(map[api.OpKind]int, len(m.c.Completed))
	for k, v := range m.c.Completed {
		s.Completed[k] = v
	}
	return s
}
