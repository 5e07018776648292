// File: internal/concurrency/workers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WorkerGroup runs a reactor's event loop on several goroutines at once.

package concurrency

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-aio/reactor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WorkerGroup drives one reactor with N Run loops. While started it holds
// a KeepAlive so the loops wait for work instead of returning.
type WorkerGroup struct {
	r   *reactor.Reactor
	n   int
	pin bool
	log *zap.Logger

	mu      sync.Mutex
	g       *errgroup.Group
	cancel  context.CancelFunc
	work    *reactor.Work
	handled atomic.Int64
	running atomic.Int32
}

// WorkerStats is a point-in-time view of a WorkerGroup.
type WorkerStats struct {
	Workers int
	Running int
	Handled int64
}

// NewWorkerGroup prepares n workers for r; n <= 0 means one per CPU. With
// pin set each worker's OS thread is bound to its own CPU.
func NewWorkerGroup(r *reactor.Reactor, n int, pin bool) *WorkerGroup {
	if n <= 0 {
		n = NumCPUs()
	}
	return &WorkerGroup{
		r:   r,
		n:   n,
		pin: pin,
		log: r.Logger().Named("workers"),
	}
}

// Start launches the workers. They run until ctx ends or Stop is called.
// Starting a running group is a no-op.
func (wg *WorkerGroup) Start(ctx context.Context) {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	if wg.g != nil {
		return
	}
	ctx, wg.cancel = context.WithCancel(ctx)
	wg.g, ctx = errgroup.WithContext(ctx)
	wg.work = wg.r.KeepAlive()
	wg.r.Restart()

	for i := 0; i < wg.n; i++ {
		id := i
		wg.g.Go(func() error { return wg.loop(id) })
	}
	work := wg.work
	wg.g.Go(func() error {
		<-ctx.Done()
		work.Release()
		wg.r.Stop()
		return nil
	})
	wg.log.Info("workers started", zap.Int("count", wg.n), zap.Bool("pinned", wg.pin))
}

func (wg *WorkerGroup) loop(id int) error {
	if wg.pin {
		cpu := PreferredCPUID(id)
		if err := PinCurrentThread(cpu); err != nil {
			wg.log.Warn("cpu pinning failed", zap.Int("worker", id), zap.Int("cpu", cpu), zap.Error(err))
		}
		defer func() { _ = UnpinCurrentThread() }()
	}
	wg.running.Add(1)
	defer wg.running.Add(-1)
	n := wg.r.Run()
	wg.handled.Add(int64(n))
	return nil
}

// Stop stops the reactor loops and waits for every worker to return.
// Pending operations stay queued; a later Start resumes them.
func (wg *WorkerGroup) Stop() error {
	wg.mu.Lock()
	g, cancel := wg.g, wg.cancel
	wg.g, wg.cancel = nil, nil
	wg.mu.Unlock()
	if g == nil {
		return nil
	}
	cancel()
	err := g.Wait()
	wg.log.Info("workers stopped", zap.Int64("handled", wg.handled.Load()))
	return err
}

// Stats reports worker counts and how many handlers the group has run.
func (wg *WorkerGroup) Stats() WorkerStats {
	return WorkerStats{
		Workers: wg.n,
		Running: int(wg.running.Load()),
		Handled: wg.handled.Load(),
	}
}
