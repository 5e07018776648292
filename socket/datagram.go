// File: socket/datagram.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connectionless transfers shared by UDP and ICMP sockets.

package socket

import (
	"context"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/transport"
	"github.com/momentics/hioload-aio/ip"
	"github.com/momentics/hioload-aio/reactor"
)

type datagram[P ip.Protocol[P]] struct {
	base[P]
}

// SendTo sends one datagram to ep. An unopened socket is opened for ep's
// protocol first.
func (d *datagram[P]) SendTo(ctx context.Context, p []byte, ep ip.Endpoint[P]) (int, error) {
	if err := d.prepareSend(ep); err != nil {
		return 0, err
	}
	n, _, err := d.blocking(ctx, "send_to", true, sendToEndpoint(p, ep), Open, Bound, Connected)
	return n, err
}

// AsyncSendTo is the asynchronous form of SendTo. Validation failures such
// as a protocol mismatch are already published on the returned operation
// (Pending false, Err set) when AsyncSendTo returns; h still runs once.
func (d *datagram[P]) AsyncSendTo(p []byte, ep ip.Endpoint[P], h reactor.Handler) *reactor.Operation {
	if err := d.prepareSend(ep); err != nil {
		return d.r.Complete(d.descriptor(), api.OpWrite, api.Completion{Err: err}, h)
	}
	return d.async(api.OpWrite, "send_to", reactor.Write, sendToEndpoint(p, ep), h, Open, Bound, Connected)
}

// ReceiveFrom reads one datagram and reports its source.
func (d *datagram[P]) ReceiveFrom(ctx context.Context, p []byte) (int, ip.Endpoint[P], error) {
	n, v, err := d.blocking(ctx, "receive_from", false, receiveFromEndpoint[P](p), Open, Bound, Connected)
	if err != nil {
		return n, ip.Endpoint[P]{}, err
	}
	return n, v.(ip.Endpoint[P]), nil
}

// AsyncReceiveFrom completes h with the source ip.Endpoint[P] in
// Completion.Value.
func (d *datagram[P]) AsyncReceiveFrom(p []byte, h reactor.Handler) *reactor.Operation {
	return d.async(api.OpRead, "receive_from", reactor.Read, receiveFromEndpoint[P](p), h, Open, Bound, Connected)
}

func (d *datagram[P]) prepareSend(ep ip.Endpoint[P]) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureLocked("send_to", ep)
}

func sendToEndpoint[P ip.Protocol[P]](p []byte, ep ip.Endpoint[P]) attempt {
	return func(fd int) (int, any, error) {
		n, err := transport.SendTo(fd, p, ep.Addr(), ep.Port())
		return n, nil, err
	}
}

func receiveFromEndpoint[P ip.Protocol[P]](p []byte) attempt {
	return func(fd int) (int, any, error) {
		n, from, err := transport.RecvFrom(fd, p)
		if err != nil {
			return n, nil, err
		}
		return n, ip.EndpointOf[P](from.Addr, from.Port), nil
	}
}
