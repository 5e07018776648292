// File: api/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Metrics sink contract consumed by the reactor and implemented by control.

package api

// OpKind names the class of an asynchronous operation for accounting.
type OpKind string

const (
	OpRead    OpKind = "read"
	OpWrite   OpKind = "write"
	OpConnect OpKind = "connect"
	OpAccept  OpKind = "accept"
	OpTimer   OpKind = "timer"
	OpSignal  OpKind = "signal"
	OpResolve OpKind = "resolve"
	OpPost    OpKind = "post"
)

// MetricsSink receives reactor accounting events. Implementations must be
// safe for concurrent use.
type MetricsSink interface {
	OpSubmitted(kind OpKind)
	OpCompleted(kind OpKind, err error)
	PollCycle(events int)
	Descriptors(n int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) OpSubmitted(OpKind) {}
func (NopMetrics) OpCompleted(OpKind, error) {}
func (NopMetrics) PollCycle(int) {}
func (NopMetrics) Descriptors(int) {}
