package resolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/momentics/hioload-aio/ip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDNS serves a tiny zone on a loopback UDP port: alias.test is a CNAME
// for real.test, which has one A and one AAAA record.
func startDNS(t *testing.T) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	rr := func(name string, qtype uint16) dns.RR_Header {
		return dns.RR_Header{Name: name, Rrtype: qtype, Class: dns.ClassINET, Ttl: 60}
	}
	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]
		switch q.Name {
		case "alias.test.", "real.test.":
			if q.Name == "alias.test." {
				m.Answer = append(m.Answer, &dns.CNAME{Hdr: rr(q.Name, dns.TypeCNAME), Target: "real.test."})
			}
			switch q.Qtype {
			case dns.TypeA:
				m.Answer = append(m.Answer, &dns.A{Hdr: rr("real.test.", dns.TypeA), A: net.ParseIP("10.1.2.3").To4()})
			case dns.TypeAAAA:
				m.Answer = append(m.Answer, &dns.AAAA{Hdr: rr("real.test.", dns.TypeAAAA), AAAA: net.ParseIP("fd00::1")})
			}
		case "broken.test.":
			m.SetRcode(req, dns.RcodeServerFailure)
		default:
			m.SetRcode(req, dns.RcodeNameError)
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestDNSBackendLookup(t *testing.T) {
	addr := startDNS(t)
	b, err := NewDNSBackend([]string{addr}, time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{addr}, b.Servers())

	ctx := context.Background()
	ans, err := b.LookupHost(ctx, "alias.test", LookupOptions{Canonical: true})
	require.NoError(t, err)
	assert.Equal(t, []ip.Addr{ip.V4(10, 1, 2, 3), ip.MustParseAddr("fd00::1")}, ans.Addrs)
	assert.Equal(t, "real.test", ans.CanonicalName)

	ans, err = b.LookupHost(ctx, "real.test", LookupOptions{Family: ip.FamilyV6})
	require.NoError(t, err)
	assert.Equal(t, []ip.Addr{ip.MustParseAddr("fd00::1")}, ans.Addrs)
	assert.Empty(t, ans.CanonicalName)
}

func TestDNSBackendFailures(t *testing.T) {
	addr := startDNS(t)
	b, err := NewDNSBackend([]string{addr}, time.Second, nil)
	require.NoError(t, err)
	q := NewQuery("nowhere.test", "80")

	_, err = b.LookupHost(context.Background(), "nowhere.test", LookupOptions{})
	var re *ResolutionError
	require.ErrorAs(t, classify(q, err), &re)
	assert.Equal(t, NotFound, re.Kind)

	_, err = b.LookupHost(context.Background(), "broken.test", LookupOptions{Family: ip.FamilyV4})
	require.ErrorAs(t, classify(q, err), &re)
	assert.Equal(t, Transport, re.Kind)
}

func TestDNSBackendFallsThroughServers(t *testing.T) {
	// Nothing answers on the first address; the second server does.
	dead, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := dead.LocalAddr().String()
	require.NoError(t, dead.Close())

	addr := startDNS(t)
	b, err := NewDNSBackend([]string{deadAddr, addr}, 200*time.Millisecond, nil)
	require.NoError(t, err)

	ans, err := b.LookupHost(context.Background(), "real.test", LookupOptions{Family: ip.FamilyV4})
	require.NoError(t, err)
	assert.Equal(t, []ip.Addr{ip.V4(10, 1, 2, 3)}, ans.Addrs)
}

func TestParseAnswerDefaultsCanonicalToHost(t *testing.T) {
	addrs, cname := parseAnswer(new(dns.Msg), "x.test")
	assert.Empty(t, addrs)
	assert.Equal(t, "x.test", cname)
}
