//go:build linux
// +build linux

package socket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/transport"
	"github.com/momentics/hioload-aio/ip"
	"github.com/momentics/hioload-aio/reactor"
	"github.com/momentics/hioload-aio/sockopt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	r, err := reactor.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func loopback4(port uint16) ip.TCPEndpoint {
	return ip.EndpointOf[ip.TCP](ip.LoopbackV4(), port)
}

func listen(t *testing.T, r *reactor.Reactor) (*TCPListener, ip.TCPEndpoint) {
	t.Helper()
	l, err := ListenTCP(r, loopback4(0), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	ep, err := l.LocalEndpoint()
	require.NoError(t, err)
	require.NotZero(t, ep.Port())
	return l, ep
}

func TestStateMachine(t *testing.T) {
	r := newReactor(t)
	s := NewTCPSocket(r)
	assert.Equal(t, Unopened, s.State())
	assert.False(t, s.IsOpen())
	assert.Equal(t, -1, s.NativeHandle())

	require.NoError(t, s.Open(ip.TCPv4()))
	assert.Equal(t, Open, s.State())
	assert.ErrorIs(t, s.Open(ip.TCPv4()), api.ErrInvalidState)

	_, err := s.Send(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, api.ErrInvalidState)

	require.NoError(t, s.Bind(loopback4(0)))
	assert.Equal(t, Bound, s.State())
	assert.ErrorIs(t, s.Bind(loopback4(0)), api.ErrInvalidState)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, Closed, s.State())
	assert.ErrorIs(t, s.Open(ip.TCPv4()), api.ErrClosed)
	_, err = s.Receive(context.Background(), make([]byte, 1))
	assert.ErrorIs(t, err, api.ErrClosed)
}

func TestProtocolMismatch(t *testing.T) {
	r := newReactor(t)

	tcp := NewTCPSocket(r)
	require.NoError(t, tcp.Open(ip.TCPv4()))
	defer tcp.Close()
	assert.ErrorIs(t, tcp.Bind(ip.EndpointOf[ip.TCP](ip.LoopbackV6(), 0)), api.ErrProtocolMismatch)
	assert.ErrorIs(t, tcp.Connect(context.Background(), ip.EndpointOf[ip.TCP](ip.LoopbackV6(), 1)), api.ErrProtocolMismatch)

	udp := NewUDPSocket(r)
	require.NoError(t, udp.Open(ip.UDPv6()))
	defer udp.Close()
	assert.ErrorIs(t, udp.Bind(ip.EndpointOf[ip.UDP](ip.LoopbackV4(), 0)), api.ErrProtocolMismatch)
	_, err := udp.SendTo(context.Background(), []byte("x"), ip.EndpointOf[ip.UDP](ip.LoopbackV4(), 9))
	assert.ErrorIs(t, err, api.ErrProtocolMismatch)

	if !transport.DetectFeatures().PingSockets {
		t.Log("ping sockets not permitted; ICMP case skipped")
		return
	}
	icmp := NewICMPSocket(r)
	require.NoError(t, icmp.Open(ip.ICMPv4()))
	defer icmp.Close()
	assert.ErrorIs(t, icmp.Bind(ip.EndpointOf[ip.ICMP](ip.LoopbackV6(), 0)), api.ErrProtocolMismatch)
}

func TestBindAddressInUse(t *testing.T) {
	r := newReactor(t)
	_, ep := listen(t, r)
	s := NewTCPSocket(r)
	defer s.Close()
	assert.ErrorIs(t, s.Bind(ep), api.ErrAddressInUse)
}

func TestSyncTCPRoundTrip(t *testing.T) {
	r := newReactor(t)
	l, ep := listen(t, r)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		s    *TCPSocket
		peer ip.TCPEndpoint
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		s, peer, err := l.Accept(ctx)
		accepted <- result{s, peer, err}
	}()

	c, err := DialTCP(ctx, r, ep)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, Connected, c.State())

	a := <-accepted
	require.NoError(t, a.err)
	defer a.s.Close()
	assert.Equal(t, Connected, a.s.State())

	local, err := c.LocalEndpoint()
	require.NoError(t, err)
	assert.Equal(t, local, a.peer)
	remote, err := c.RemoteEndpoint()
	require.NoError(t, err)
	assert.Equal(t, ep, remote)

	n, err := c.Send(ctx, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = a.s.Receive(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	require.NoError(t, c.Shutdown(transport.ShutdownWrite))
	_, err = a.s.Receive(ctx, buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReceiveHonoursContext(t *testing.T) {
	r := newReactor(t)
	s, err := BindUDP(r, ip.EndpointOf[ip.UDP](ip.LoopbackV4(), 0))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, _, err = s.ReceiveFrom(ctx, make([]byte, 8))
	assert.ErrorIs(t, err, api.ErrCancelled)
}

func TestAsyncTCPEcho(t *testing.T) {
	r := newReactor(t)
	l, ep := listen(t, r)

	var server *TCPSocket
	sbuf := make([]byte, 64)
	l.AsyncAccept(func(c api.Completion) {
		require.NoError(t, c.Err)
		server = c.Value.(Accepted).Socket
		server.AsyncReceive(sbuf, func(c api.Completion) {
			require.NoError(t, c.Err)
			server.AsyncSend(sbuf[:c.N], nil)
		})
	})

	client := NewTCPSocket(r)
	defer client.Close()
	reply := make([]byte, 64)
	var got string
	client.AsyncConnect(ep, func(c api.Completion) {
		require.NoError(t, c.Err)
		client.AsyncSend([]byte("ping over reactor"), func(c api.Completion) {
			require.NoError(t, c.Err)
			assert.Equal(t, 17, c.N)
			client.AsyncReceive(reply, func(c api.Completion) {
				require.NoError(t, c.Err)
				got = string(reply[:c.N])
			})
		})
	})
	r.Run()
	require.NotNil(t, server)
	defer server.Close()
	assert.Equal(t, "ping over reactor", got)
	assert.Equal(t, Connected, client.State())
}

func TestCloseCancelsPendingReceives(t *testing.T) {
	for _, n := range []int{0, 1, 100} {
		r := newReactor(t)
		s, err := BindUDP(r, ip.EndpointOf[ip.UDP](ip.LoopbackV4(), 0))
		require.NoError(t, err)

		counts := make([]int, n)
		for i := 0; i < n; i++ {
			i := i
			s.AsyncReceiveFrom(make([]byte, 8), func(c api.Completion) {
				counts[i]++
				assert.ErrorIs(t, c.Err, api.ErrCancelled)
			})
		}
		require.NoError(t, s.Close())
		assert.Equal(t, n, r.Run())
		for i, c := range counts {
			assert.Equal(t, 1, c, "op %d of %d", i, n)
		}
	}
}

func TestCancelConnect(t *testing.T) {
	r := newReactor(t)
	s := NewTCPSocket(r)
	defer s.Close()
	unreachable := ip.EndpointOf[ip.TCP](ip.V4(10, 255, 255, 1), 9)

	var deliveries int
	var got api.Completion
	op := s.AsyncConnect(unreachable, func(c api.Completion) {
		deliveries++
		got = c
	})
	if !op.Pending() {
		r.Run()
		t.Skipf("connect failed before it could be cancelled: %v", op.Err())
	}
	require.NoError(t, op.Cancel())
	require.NoError(t, op.Cancel())
	r.Run()
	assert.Equal(t, 1, deliveries)
	assert.True(t, got.Cancelled(), "got %v", got.Err)
	assert.False(t, errors.Is(got.Err, api.ErrOS))
	assert.NotEqual(t, Connected, s.State())
}

func TestAsyncValidationFailsAtSubmission(t *testing.T) {
	r := newReactor(t)

	tcp := NewTCPSocket(r)
	require.NoError(t, tcp.Open(ip.TCPv4()))
	defer tcp.Close()
	var tcpHits int
	op := tcp.AsyncConnect(ip.EndpointOf[ip.TCP](ip.LoopbackV6(), 1), func(c api.Completion) {
		tcpHits++
		assert.ErrorIs(t, c.Err, api.ErrProtocolMismatch)
	})
	assert.False(t, op.Pending())
	assert.ErrorIs(t, op.Err(), api.ErrProtocolMismatch)

	udp := NewUDPSocket(r)
	require.NoError(t, udp.Open(ip.UDPv6()))
	defer udp.Close()
	var udpHits int
	op = udp.AsyncSendTo([]byte("x"), ip.EndpointOf[ip.UDP](ip.LoopbackV4(), 9), func(c api.Completion) {
		udpHits++
	})
	assert.False(t, op.Pending())
	assert.ErrorIs(t, op.Err(), api.ErrProtocolMismatch)

	assert.Equal(t, 2, r.Run())
	assert.Equal(t, 1, tcpHits)
	assert.Equal(t, 1, udpHits)
}

func TestReceiveWhileOpening(t *testing.T) {
	r := newReactor(t)
	s := NewTCPSocket(r)
	defer s.Close()

	opened := make(chan error, 1)
	go func() { opened <- s.Open(ip.TCPv4()) }()
	op := s.AsyncReceive(make([]byte, 1), nil)
	require.NoError(t, <-opened)
	r.Run()
	assert.ErrorIs(t, op.Err(), api.ErrInvalidState)
}

func TestOperationsAfterCloseReportClosed(t *testing.T) {
	r := newReactor(t)
	s, err := BindUDP(r, ip.EndpointOf[ip.UDP](ip.LoopbackV4(), 0))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	op := s.AsyncReceiveFrom(make([]byte, 4), nil)
	r.Run()
	assert.ErrorIs(t, op.Err(), api.ErrClosed)
	assert.ErrorIs(t, s.SetOption(sockopt.Broadcast(true)), api.ErrClosed)
}

func TestUDPExchange(t *testing.T) {
	r := newReactor(t)
	a, err := BindUDP(r, ip.EndpointOf[ip.UDP](ip.LoopbackV4(), 0))
	require.NoError(t, err)
	defer a.Close()
	aep, err := a.LocalEndpoint()
	require.NoError(t, err)

	b := NewUDPSocket(r)
	defer b.Close()

	buf := make([]byte, 32)
	var from ip.UDPEndpoint
	var n int
	a.AsyncReceiveFrom(buf, func(c api.Completion) {
		require.NoError(t, c.Err)
		n = c.N
		from = c.Value.(ip.UDPEndpoint)
	})
	b.AsyncSendTo([]byte("datagram"), aep, func(c api.Completion) {
		require.NoError(t, c.Err)
		assert.Equal(t, 8, c.N)
	})
	r.Run()
	assert.Equal(t, "datagram", string(buf[:n]))
	bep, err := b.LocalEndpoint()
	require.NoError(t, err)
	assert.Equal(t, bep.Port(), from.Port())
	assert.Equal(t, ip.LoopbackV4(), from.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Connect(ctx, aep))
	assert.Equal(t, Connected, b.State())
	_, err = b.Send(ctx, []byte("again"))
	require.NoError(t, err)
	avail := 0
	require.Eventually(t, func() bool {
		avail, _ = a.Available()
		return avail > 0
	}, time.Second, 5*time.Millisecond)
	n, _, err = a.ReceiveFrom(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "again", string(buf[:n]))
}

func TestMulticastMembership(t *testing.T) {
	r := newReactor(t)
	s, err := BindUDP(r, ip.EndpointOf[ip.UDP](ip.AnyV4(), 0))
	require.NoError(t, err)
	defer s.Close()

	group := ip.V4(239, 255, 0, 42)
	assert.False(t, s.IsMember(group))

	err = s.SetOption(sockopt.MulticastJoinGroup{Group: ip.MustParseAddr("ff02::1")})
	assert.ErrorIs(t, err, api.ErrInvalidValue)
	assert.False(t, s.IsMember(ip.MustParseAddr("ff02::1")))

	if err := s.SetOption(sockopt.MulticastJoinGroup{Group: group}); err != nil {
		t.Skipf("multicast unavailable: %v", err)
	}
	assert.True(t, s.IsMember(group))
	require.NoError(t, s.SetOption(sockopt.MulticastLeaveGroup{Group: group}))
	assert.False(t, s.IsMember(group))

	require.NoError(t, s.SetOption(&sockopt.MulticastJoinGroup{Group: group}))
	assert.True(t, s.IsMember(group))
	require.NoError(t, s.SetOption(&sockopt.MulticastLeaveGroup{Group: group}))
	assert.False(t, s.IsMember(group))
}

func TestICMPEchoLoopback(t *testing.T) {
	if !transport.DetectFeatures().PingSockets {
		t.Skip("unprivileged ping sockets not permitted")
	}
	r := newReactor(t)
	s := NewICMPSocket(r)
	require.NoError(t, s.Open(ip.ICMPv4()))
	defer s.Close()

	req, err := EchoRequest(ip.FamilyV4, 0, 7, []byte("payload"))
	require.NoError(t, err)

	var reply []byte
	buf := make([]byte, 512)
	s.AsyncSendTo(req, ip.EndpointOf[ip.ICMP](ip.LoopbackV4(), 0), func(c api.Completion) {
		require.NoError(t, c.Err)
		s.AsyncReceiveFrom(buf, func(c api.Completion) {
			require.NoError(t, c.Err)
			reply = buf[:c.N]
		})
	})
	r.Run()

	echo, err := ParseEchoReply(ip.FamilyV4, reply)
	require.NoError(t, err)
	assert.Equal(t, 7, echo.Seq)
	assert.Equal(t, []byte("payload"), echo.Data)
}

func TestEchoRequestRejectsNonReply(t *testing.T) {
	req, err := EchoRequest(ip.FamilyV6, 1, 1, nil)
	require.NoError(t, err)
	_, err = ParseEchoReply(ip.FamilyV6, req)
	assert.True(t, errors.Is(err, api.ErrInvalidValue))
}
