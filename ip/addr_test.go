package ip

import (
	"errors"
	"net/netip"
	"slices"
	"testing"

	"github.com/momentics/hioload-aio/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{
		"0.0.0.0",
		"127.0.0.1",
		"255.255.255.255",
		"::",
		"::1",
		"2001:db8::8a2e:370:7334",
		"::ffff:10.0.0.1",
		"fe80::1%7",
	} {
		a, err := ParseAddr(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, a.String(), s)
		b, err := ParseAddr(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestParseAddrMalformed(t *testing.T) {
	for _, s := range []string{"", "1.2.3", "256.1.1.1", "1.2.3.4.5", "::g", "1::2::3", "localhost", " 1.2.3.4"} {
		_, err := ParseAddr(s)
		require.Error(t, err, s)
		assert.ErrorIs(t, err, api.ErrAddrParse, s)
		assert.Equal(t, api.ErrCodeAddrParse, api.CodeOf(err))
		var pe *AddrParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, s, pe.Input)
	}
}

func TestAddrFamilies(t *testing.T) {
	v4 := V4(192, 0, 2, 1)
	assert.True(t, v4.Is4())
	assert.Equal(t, [4]byte{192, 0, 2, 1}, v4.As4())
	assert.Panics(t, func() { v4.As16() })
	assert.Len(t, v4.Bytes(), 4)

	v6 := MustParseAddr("2001:db8::1")
	assert.True(t, v6.Is6())
	assert.Panics(t, func() { v6.As4() })
	assert.Len(t, v6.Bytes(), 16)

	mapped := MustParseAddr("::ffff:10.0.0.1")
	assert.True(t, mapped.Is6())
	conv, ok := AddrFromIP(mapped.IP())
	require.True(t, ok)
	assert.True(t, conv.Is4())

	var zero Addr
	assert.False(t, zero.IsValid())
	assert.Equal(t, "invalid IP", zero.String())
	assert.Nil(t, zero.Bytes())
}

func TestAddrPredicates(t *testing.T) {
	assert.True(t, AnyV4().IsUnspecified())
	assert.True(t, AnyV6().IsUnspecified())
	assert.True(t, LoopbackV4().IsLoopback())
	assert.True(t, LoopbackV6().IsLoopback())
	assert.True(t, MustParseAddr("239.1.2.3").IsMulticast())
	assert.True(t, MustParseAddr("ff02::1").IsMulticast())
	assert.True(t, MustParseAddr("fe80::1").IsLinkLocal())
	assert.False(t, MustParseAddr("10.0.0.1").IsLoopback())
	assert.Equal(t, AnyV6(), Any(FamilyV6))
	assert.Equal(t, LoopbackV4(), Loopback(FamilyV4))
}

func TestAddrOrdering(t *testing.T) {
	addrs := []Addr{
		MustParseAddr("::1"),
		V4(10, 0, 0, 2),
		MustParseAddr("fe80::1%2"),
		V4(10, 0, 0, 1),
		MustParseAddr("fe80::1%1"),
		V4(9, 255, 255, 255),
	}
	slices.SortFunc(addrs, Addr.Compare)
	var got []string
	for _, a := range addrs {
		got = append(got, a.String())
	}
	assert.Equal(t, []string{"9.255.255.255", "10.0.0.1", "10.0.0.2", "::1", "fe80::1%1", "fe80::1%2"}, got)
	assert.True(t, V4(1, 1, 1, 1).Less(AnyV6()))
	assert.Zero(t, V4(1, 2, 3, 4).Compare(V4(1, 2, 3, 4)))
}

func TestAddrScope(t *testing.T) {
	a := MustParseAddr("fe80::1")
	scoped := a.WithScope(3)
	assert.Equal(t, uint32(3), scoped.ScopeID())
	assert.Equal(t, "fe80::1%3", scoped.String())
	assert.NotEqual(t, a, scoped)
	assert.Equal(t, V4(1, 2, 3, 4), V4(1, 2, 3, 4).WithScope(9))
}

func TestAddrNetipInterop(t *testing.T) {
	na := netip.MustParseAddr("2001:db8::2")
	assert.Equal(t, na, AddrFrom(na).Netip())
	assert.Equal(t, Addr{}, AddrFrom(netip.Addr{}))

	var a Addr
	require.NoError(t, a.UnmarshalText([]byte("10.1.1.1")))
	txt, err := a.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "10.1.1.1", string(txt))
	assert.Error(t, a.UnmarshalText([]byte("nope")))
}

func TestLlAddr(t *testing.T) {
	for _, s := range []string{"00:1a:2b:3c:4d:5e", "00-1A-2B-3C-4D-5E", "001a.2b3c.4d5e"} {
		l, err := ParseLlAddr(s)
		require.NoError(t, err, s)
		assert.Equal(t, "00:1a:2b:3c:4d:5e", l.String())
	}
	_, err := ParseLlAddr("00:00:5e:00:53:00:00:01")
	assert.ErrorIs(t, err, api.ErrAddrParse)
	_, err = ParseLlAddr("zz:00:00:00:00:00")
	assert.ErrorIs(t, err, api.ErrAddrParse)

	bcast := LlAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	assert.True(t, bcast.IsBroadcast())
	assert.True(t, bcast.IsMulticast())
	assert.False(t, LlAddr{0x00, 0x1a}.IsMulticast())
	assert.Equal(t, -1, LlAddr{1}.Compare(LlAddr{2}))
}

func TestHostName(t *testing.T) {
	name, err := HostName()
	require.NoError(t, err)
	assert.NotEmpty(t, name)

	defer func(f func() (string, error)) { hostnameFunc = f }(hostnameFunc)
	hostnameFunc = func() (string, error) { return "", nil }
	_, err = HostName()
	assert.ErrorIs(t, err, api.ErrResolution)

	hostnameFunc = func() (string, error) { return "", errors.New("uname failed") }
	_, err = HostName()
	var re *api.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, api.ResolutionNotFound, re.Kind)
}
