// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// OS transport capability for hioload-aio: socket allocation per protocol
// descriptor, bind/connect/listen/accept, datagram and stream transfer,
// raw socket option access and error classification. Every socket created
// here is non-blocking and close-on-exec. Platform specifics are strictly
// separated by build tags; unsupported platforms report api.ErrNotSupported.

package transport
