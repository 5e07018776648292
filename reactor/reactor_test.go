//go:build linux
// +build linux

package reactor

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/momentics/hioload-aio/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sys/unix"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newReactor(t *testing.T, opts ...Option) *Reactor {
	t.Helper()
	r, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func readOp(fd int, buf []byte) Perform {
	return func() (api.Completion, bool) {
		n, err := unix.Read(fd, buf)
		if errors.Is(err, unix.EAGAIN) {
			return api.Completion{}, false
		}
		return api.Completion{N: n, Err: err}, true
	}
}

func TestRunWithoutWorkReturns(t *testing.T) {
	r := newReactor(t)
	assert.Equal(t, 0, r.Run())
	assert.Equal(t, 0, r.Poll())
}

func TestPostRunsInOrder(t *testing.T) {
	r := newReactor(t)
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		r.Post(func() { got = append(got, i) })
	}
	assert.Equal(t, 5, r.Run())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestReadCompletesOnReadiness(t *testing.T) {
	r := newReactor(t)
	a, b := socketPair(t)
	d, err := r.Register(a)
	require.NoError(t, err)

	buf := make([]byte, 16)
	var got api.Completion
	op := r.Submit(d, Read, api.OpRead, readOp(a, buf), func(c api.Completion) { got = c })

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = unix.Write(b, []byte("hello"))
	}()
	assert.Equal(t, 1, r.Run())
	<-op.Done()
	require.NoError(t, got.Err)
	assert.Equal(t, 5, got.N)
	assert.Equal(t, "hello", string(buf[:got.N]))
	assert.Equal(t, got, op.Result())
}

func TestSubmitNeverPerformsInline(t *testing.T) {
	r := newReactor(t)
	a, b := socketPair(t)
	_, err := unix.Write(b, []byte("x"))
	require.NoError(t, err)
	d, err := r.Register(a)
	require.NoError(t, err)

	var calls atomic.Int32
	perform := func() (api.Completion, bool) {
		calls.Add(1)
		return api.Completion{N: 1}, true
	}
	op := r.Submit(d, Read, api.OpRead, perform, nil)
	assert.Equal(t, int32(0), calls.Load())
	assert.True(t, op.Pending())
	r.Run()
	assert.Equal(t, int32(1), calls.Load())
}

func TestDeregisterCancelsInSubmissionOrder(t *testing.T) {
	for _, n := range []int{0, 1, 100} {
		r := newReactor(t)
		a, _ := socketPair(t)
		d, err := r.Register(a)
		require.NoError(t, err)

		var order []int
		var cancelled int
		for i := 0; i < n; i++ {
			i := i
			dir := Read
			if i%2 == 1 {
				dir = Write
			}
			never := func() (api.Completion, bool) { return api.Completion{}, false }
			r.Submit(d, dir, api.OpRead, never, func(c api.Completion) {
				order = append(order, i)
				if errors.Is(c.Err, api.ErrCancelled) {
					cancelled++
				}
			})
		}
		require.NoError(t, r.Deregister(d))
		assert.Equal(t, n, r.Run(), "n=%d", n)
		assert.Equal(t, n, cancelled)
		for i := range order {
			assert.Equal(t, i, order[i])
		}
	}
}

func TestCancelAfterCompletionDeliversOnce(t *testing.T) {
	r := newReactor(t)
	a, b := socketPair(t)
	d, err := r.Register(a)
	require.NoError(t, err)
	_, err = unix.Write(b, []byte("abc"))
	require.NoError(t, err)

	var deliveries int
	var last api.Completion
	op := r.Submit(d, Read, api.OpRead, readOp(a, make([]byte, 8)), func(c api.Completion) {
		deliveries++
		last = c
	})
	r.Run()
	require.NoError(t, op.Cancel())
	r.Run()
	assert.Equal(t, 1, deliveries)
	assert.NoError(t, last.Err)
	assert.Equal(t, 3, last.N)
}

func TestCancelPendingOperation(t *testing.T) {
	r := newReactor(t)
	a, _ := socketPair(t)
	d, err := r.Register(a)
	require.NoError(t, err)

	var got api.Completion
	op := r.Submit(d, Read, api.OpRead, readOp(a, make([]byte, 8)), func(c api.Completion) { got = c })
	require.NoError(t, op.Cancel())
	require.NoError(t, op.Cancel())
	assert.Equal(t, 1, r.Run())
	assert.True(t, got.Cancelled())
	assert.ErrorIs(t, op.Err(), api.ErrCancelled)
}

func TestSubmitAfterDeregisterFailsClosed(t *testing.T) {
	r := newReactor(t)
	a, _ := socketPair(t)
	d, err := r.Register(a)
	require.NoError(t, err)
	require.NoError(t, r.Deregister(d))
	require.NoError(t, r.Deregister(d))

	op := r.Submit(d, Read, api.OpRead, readOp(a, make([]byte, 1)), nil)
	r.Run()
	assert.ErrorIs(t, op.Err(), api.ErrClosed)
}

func TestStopReturnsFromRunWithoutCancelling(t *testing.T) {
	r := newReactor(t)
	a, _ := socketPair(t)
	d, err := r.Register(a)
	require.NoError(t, err)
	op := r.Submit(d, Read, api.OpRead, readOp(a, make([]byte, 1)), nil)

	done := make(chan int)
	go func() { done <- r.Run() }()
	time.Sleep(20 * time.Millisecond)
	r.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.True(t, r.Stopped())
	assert.True(t, op.Pending())

	r.Restart()
	assert.False(t, r.Stopped())
	require.NoError(t, r.Deregister(d))
	r.Run()
	assert.ErrorIs(t, op.Err(), api.ErrCancelled)
}

func TestKeepAliveHoldsRun(t *testing.T) {
	r := newReactor(t)
	w := r.KeepAlive()
	done := make(chan int)
	go func() { done <- r.Run() }()

	time.Sleep(20 * time.Millisecond)
	ran := make(chan struct{})
	r.Post(func() { close(ran) })
	<-ran

	select {
	case <-done:
		t.Fatal("Run returned while work guard held")
	case <-time.After(20 * time.Millisecond):
	}
	w.Release()
	w.Release()
	select {
	case n := <-done:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Release")
	}
}

func TestStrandSerialisesHandlers(t *testing.T) {
	r := newReactor(t)
	s := NewStrand(r)
	var active, maxActive atomic.Int32
	var order []int
	for i := 0; i < 200; i++ {
		i := i
		s.Post(func() {
			if v := active.Add(1); v > maxActive.Load() {
				maxActive.Store(v)
			}
			order = append(order, i)
			active.Add(-1)
		})
	}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxActive.Load())
	require.Len(t, order, 200)
	for i := range order {
		assert.Equal(t, i, order[i])
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	r := newReactor(t)
	var after bool
	r.Post(func() { panic("boom") })
	r.Post(func() { after = true })
	assert.Equal(t, 2, r.Run())
	assert.True(t, after)
}

func TestCloseCancelsPending(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	a, _ := socketPair(t)
	d, err := r.Register(a)
	require.NoError(t, err)

	var got api.Completion
	r.Submit(d, Read, api.OpRead, readOp(a, make([]byte, 1)), func(c api.Completion) { got = c })
	require.NoError(t, r.Close())
	assert.True(t, got.Cancelled())
	require.NoError(t, r.Close())

	_, err = r.Register(a)
	assert.ErrorIs(t, err, api.ErrClosed)
}

func TestCloseCancelsUnboundOperations(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	tm := NewTimer(r)
	var timerHits, beginHits int
	var timerRes, beginRes api.Completion
	top := tm.AsyncWait(time.Hour, func(c api.Completion) {
		timerHits++
		timerRes = c
	})
	var stopped bool
	bop := r.Begin(api.OpResolve, func(c api.Completion) {
		beginHits++
		beginRes = c
	}, func() { stopped = true })

	require.NoError(t, r.Close())
	assert.Equal(t, 1, timerHits)
	assert.True(t, timerRes.Cancelled())
	assert.Equal(t, 0, tm.Pending())
	assert.Equal(t, 1, beginHits)
	assert.True(t, beginRes.Cancelled())
	assert.True(t, stopped)
	for _, op := range []*Operation{top, bop} {
		select {
		case <-op.Done():
		default:
			t.Fatalf("%s operation not delivered by Close", op.Kind())
		}
	}

	assert.False(t, bop.Finish(api.Completion{N: 1}))
	assert.Equal(t, 1, beginHits)
	assert.Equal(t, int64(0), r.Stats().Outstanding)
}

func TestSubmitAfterCloseDeliversClosed(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	require.NoError(t, r.Close())

	delivered := make(chan api.Completion, 2)
	h := func(c api.Completion) { delivered <- c }
	bop := r.Begin(api.OpResolve, h, nil)
	assert.False(t, bop.Pending())
	assert.ErrorIs(t, bop.Err(), api.ErrClosed)
	assert.False(t, bop.Finish(api.Completion{}))

	tm := NewTimer(r)
	top := tm.AsyncWait(time.Hour, h)
	assert.ErrorIs(t, top.Err(), api.ErrClosed)
	assert.Equal(t, 0, tm.Pending())

	for i := 0; i < 2; i++ {
		select {
		case c := <-delivered:
			assert.ErrorIs(t, c.Err, api.ErrClosed)
		case <-time.After(time.Second):
			t.Fatal("completion after Close was never delivered")
		}
	}
	<-bop.Done()
	<-top.Done()
	require.Eventually(t, func() bool { return r.Stats().Outstanding == 0 }, time.Second, time.Millisecond)
}

func TestCloseWakesBlockedRun(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	NewTimer(r).AsyncWait(time.Hour, nil)

	returned := make(chan int, 1)
	go func() { returned <- r.Run() }()
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.polling
	}, time.Second, time.Millisecond)

	require.NoError(t, r.Close())
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Run still blocked after Close")
	}
	r.mu.Lock()
	assert.False(t, r.polling)
	r.mu.Unlock()
}

func TestTimerFiresOnce(t *testing.T) {
	mock := clock.NewMock()
	r := newReactor(t, WithClock(mock))
	tm := NewTimer(r)

	var fired int
	op := tm.AsyncWait(time.Second, func(c api.Completion) {
		assert.NoError(t, c.Err)
		fired++
	})
	assert.Equal(t, 1, tm.Pending())
	assert.Equal(t, 0, r.Poll())
	mock.Add(time.Second)
	assert.Equal(t, 1, r.Run())
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, tm.Pending())

	require.NoError(t, op.Cancel())
	r.Poll()
	assert.Equal(t, 1, fired)
}

func TestTimerCancel(t *testing.T) {
	mock := clock.NewMock()
	r := newReactor(t, WithClock(mock))
	tm := NewTimer(r)

	var results []api.Completion
	for i := 0; i < 3; i++ {
		tm.AsyncWait(time.Minute, func(c api.Completion) { results = append(results, c) })
	}
	assert.Equal(t, 3, tm.Cancel())
	assert.Equal(t, 0, tm.Cancel())
	mock.Add(time.Hour)
	assert.Equal(t, 3, r.Run())
	for _, c := range results {
		assert.True(t, c.Cancelled())
	}
}

func TestTimerZeroDuration(t *testing.T) {
	r := newReactor(t)
	var fired bool
	NewTimer(r).AsyncWait(0, func(api.Completion) { fired = true })
	assert.Equal(t, 1, r.Run())
	assert.True(t, fired)
}

func TestSignalSetDelivers(t *testing.T) {
	r := newReactor(t)
	s := NewSignalSet(r, unix.SIGUSR1)
	defer s.Close()

	var got api.Completion
	s.AsyncWait(func(c api.Completion) { got = c })
	require.NoError(t, unix.Kill(unix.Getpid(), unix.SIGUSR1))
	assert.Equal(t, 1, r.Run())
	require.NoError(t, got.Err)
	assert.Equal(t, unix.SIGUSR1, got.Value)
}

func TestSignalSetCloseCancels(t *testing.T) {
	r := newReactor(t)
	s := NewSignalSet(r, unix.SIGUSR2)
	var got api.Completion
	s.AsyncWait(func(c api.Completion) { got = c })
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	r.Run()
	assert.True(t, got.Cancelled())
}

func TestStatsSnapshot(t *testing.T) {
	r := newReactor(t)
	a, _ := socketPair(t)
	_, err := r.Register(a)
	require.NoError(t, err)
	st := r.Stats()
	assert.Equal(t, r.ID(), st.ID)
	assert.Equal(t, 1, st.Descriptors)
	assert.False(t, st.Stopped)
}
