// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus metrics sink for the reactor.

package control

import (
	"errors"

	"github.com/momentics/hioload-aio/api"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Metrics implements api.MetricsSink on Prometheus collectors.
type Metrics struct {
	submitted   *prometheus.CounterVec
	completed   *prometheus.CounterVec
	cancelled   *prometheus.CounterVec
	failed      *prometheus.CounterVec
	polls       prometheus.Counter
	events      prometheus.Counter
	descriptors prometheus.Gauge
	gatherer    prometheus.Gatherer
}

var _ api.MetricsSink = (*Metrics)(nil)

// NewMetrics creates the collectors under namespace and registers them
// with reg. A nil reg gets a private registry.
func NewMetrics(namespace string, reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "ops_submitted_total",
			Help: "Asynchronous operations started.",
		}, []string{"kind"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "ops_completed_total",
			Help: "Asynchronous operations delivered, whatever the outcome.",
		}, []string{"kind"}),
		cancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "ops_cancelled_total",
			Help: "Operations delivered as cancelled.",
		}, []string{"kind"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "ops_failed_total",
			Help: "Operations delivered with an error other than cancellation.",
		}, []string{"kind", "code"}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "polls_total",
			Help: "Poller passes.",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "poll_events_total",
			Help: "Readiness events returned by the poller.",
		}),
		descriptors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "reactor", Name: "descriptors",
			Help: "Descriptors currently registered.",
		}),
		gatherer: reg,
	}
	var err error
	for _, c := range []prometheus.Collector{m.submitted, m.completed, m.cancelled, m.failed, m.polls, m.events, m.descriptors} {
		err = multierr.Append(err, reg.Register(c))
	}
	if err != nil {
		return nil, api.Wrap(api.ErrCodeInvalidValue, "metrics_register", err)
	}
	return m, nil
}

func (m *Metrics) OpSubmitted(kind api.OpKind) {
	m.submitted.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) OpCompleted(kind api.OpKind, err error) {
	m.completed.WithLabelValues(string(kind)).Inc()
	switch {
	case err == nil:
	case errors.Is(err, api.ErrCancelled):
		m.cancelled.WithLabelValues(string(kind)).Inc()
	default:
		m.failed.WithLabelValues(string(kind), api.CodeOf(err).String()).Inc()
	}
}

func (m *Metrics) PollCycle(events int) {
	m.polls.Inc()
	m.events.Add(float64(events))
}

func (m *Metrics) Descriptors(n int) { m.descriptors.Set(float64(n)) }

// Gatherer exposes the registry the collectors live in.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.gatherer }

// GetSnapshot flattens every sample into name{labels} -> value.
func (m *Metrics) GetSnapshot() (map[string]float64, error) {
	families, err := m.gatherer.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, s := range mf.GetMetric() {
			key := mf.GetName()
			for i, lp := range s.GetLabel() {
				if i == 0 {
					key += "{"
				} else {
					key += ","
				}
				key += lp.GetName() + "=" + lp.GetValue()
			}
			if len(s.GetLabel()) > 0 {
				key += "}"
			}
			switch {
			case s.GetCounter() != nil:
				out[key] = s.GetCounter().GetValue()
			case s.GetGauge() != nil:
				out[key] = s.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
