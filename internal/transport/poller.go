// File: internal/transport/poller.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

// Event is one readiness notification. Token is the value supplied to
// Poller.Add; the poller's own wake-up events are never reported.
type Event struct {
	Token    uint64
	Readable bool
	Writable bool
	Hangup   bool
	Error    bool
}

// DefaultBatch is the number of events fetched by one Wait call.
const DefaultBatch = 128
