//go:build linux
// +build linux

package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want api.ErrorCode
	}{
		{unix.EADDRINUSE, api.ErrCodeAddressInUse},
		{unix.ECANCELED, api.ErrCodeCancelled},
		{unix.ENOPROTOOPT, api.ErrCodeUnsupportedOption},
		{unix.EMFILE, api.ErrCodeResourceExhausted},
		{unix.EBADF, api.ErrCodeClosed},
		{unix.ECONNREFUSED, api.ErrCodeOS},
		{context.Canceled, api.ErrCodeCancelled},
		{fmt.Errorf("wrapped: %w", unix.EADDRINUSE), api.ErrCodeAddressInUse},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, classify(c.err), "%v", c.err)
	}
}

func TestWrapKeepsErrno(t *testing.T) {
	err := Wrap("bind", unix.EADDRINUSE)
	assert.ErrorIs(t, err, api.ErrAddressInUse)
	assert.ErrorIs(t, err, unix.EADDRINUSE)
	assert.Nil(t, Wrap("bind", nil))

	pre := api.Wrap(api.ErrCodeInvalidValue, "x", nil)
	assert.Same(t, pre, Wrap("bind", pre))
}

func TestUDPLoopbackRoundTrip(t *testing.T) {
	a, err := Socket(ip.UDPv4())
	require.NoError(t, err)
	defer Close(a)
	b, err := Socket(ip.UDPv4())
	require.NoError(t, err)
	defer Close(b)

	require.NoError(t, Bind(a, ip.LoopbackV4(), 0))
	la, err := LocalAddr(a)
	require.NoError(t, err)
	assert.NotZero(t, la.Port)
	assert.Equal(t, ip.LoopbackV4(), la.Addr)

	_, _, err = RecvFrom(a, make([]byte, 8))
	assert.True(t, IsWouldBlock(err))

	n, err := SendTo(b, []byte("ping"), la.Addr, la.Port)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, WaitIO(ctx, a, false))

	avail, err := Available(a)
	require.NoError(t, err)
	assert.Equal(t, 4, avail)

	buf := make([]byte, 8)
	n, from, err := RecvFrom(a, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
	assert.Equal(t, ip.LoopbackV4(), from.Addr)
}

func TestWaitIOHonoursContext(t *testing.T) {
	fd, err := Socket(ip.UDPv4())
	require.NoError(t, err)
	defer Close(fd)
	require.NoError(t, Bind(fd, ip.LoopbackV4(), 0))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = WaitIO(ctx, fd, false)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestBindAddressInUse(t *testing.T) {
	a, err := Socket(ip.TCPv4())
	require.NoError(t, err)
	defer Close(a)
	require.NoError(t, Bind(a, ip.LoopbackV4(), 0))
	require.NoError(t, Listen(a, 0))
	la, err := LocalAddr(a)
	require.NoError(t, err)

	b, err := Socket(ip.TCPv4())
	require.NoError(t, err)
	defer Close(b)
	err = Wrap("bind", Bind(b, la.Addr, la.Port))
	assert.ErrorIs(t, err, api.ErrAddressInUse)
}

func TestIntOptionRoundTrip(t *testing.T) {
	fd, err := Socket(ip.TCPv4())
	require.NoError(t, err)
	defer Close(fd)
	require.NoError(t, SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1))
	v, err := GetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, SetLinger(fd, true, 3))
	on, secs, err := GetLinger(fd)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, 3, secs)
}

func TestPollerWake(t *testing.T) {
	p, err := NewPoller(0)
	require.NoError(t, err)
	defer p.Close()

	done := make(chan int)
	go func() {
		n, _ := p.Wait(-1, make([]Event, DefaultBatch))
		done <- n
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, p.Wake())
	select {
	case n := <-done:
		assert.Equal(t, 0, n)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait not interrupted")
	}
}

func TestPollerReportsToken(t *testing.T) {
	p, err := NewPoller(4)
	require.NoError(t, err)
	defer p.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	const tok = uint64(1)<<40 | 7
	require.NoError(t, p.Add(fds[0], tok))
	_, err = unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	out := make([]Event, 4)
	n, err := p.Wait(time.Second, out)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, tok, out[0].Token)
	assert.True(t, out[0].Readable)

	require.NoError(t, p.Remove(fds[0]))
	require.NoError(t, p.Remove(fds[0]))
}

func TestDetectFeatures(t *testing.T) {
	f := DetectFeatures()
	assert.True(t, f.Supported)
	assert.Equal(t, "linux", f.OS)
}
