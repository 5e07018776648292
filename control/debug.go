// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug handler and probe reflector for internal inspection.

package control

import (
	"sync"

	"github.com/momentics/hioload-aio/reactor"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// UnregisterProbe drops a hook.
func (dp *DebugProbes) UnregisterProbe(name string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	delete(dp.probes, name)
}

// RegisterReactor exposes r.Stats under "reactor.<id>".
func (dp *DebugProbes) RegisterReactor(r *reactor.Reactor) {
	dp.RegisterProbe("reactor."+r.ID(), func() any { return r.Stats() })
}

// RegisterMetrics exposes the metric snapshot under "metrics".
func (dp *DebugProbes) RegisterMetrics(m *Metrics) {
	dp.RegisterProbe("metrics", func() any {
		snap, err := m.GetSnapshot()
		if err != nil {
			return err.Error()
		}
		return snap
	})
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any)
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}
