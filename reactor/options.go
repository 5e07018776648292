// File: reactor/options.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"github.com/benbjohnson/clock"
	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/transport"
	"go.uber.org/zap"
)

// Option customises a Reactor at construction.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics api.MetricsSink
	clock   clock.Clock
	batch   int
}

func defaultOptions() options {
	return options{
		logger:  zap.NewNop(),
		metrics: api.NopMetrics{},
		clock:   clock.New(),
		batch:   transport.DefaultBatch,
	}
}

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics installs a metrics sink.
func WithMetrics(m api.MetricsSink) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock replaces the wall clock used by timers; tests pass clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithBatch sets how many readiness events one poller pass may fetch.
func WithBatch(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batch = n
		}
	}
}
