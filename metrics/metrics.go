// Package metrics exposes authenticator outcomes as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tokenauth"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Collector groups the authenticator counters. A nil *Collector is valid and
// records nothing.
type Collector struct {
	authenticate *prometheus.CounterVec
	refresh      *prometheus.CounterVec
	scheduled    prometheus.Counter
	invalidate   prometheus.Counter
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authenticate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authenticate_total",
			Help:      "Credential exchanges by result.",
		}, []string{"result"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Token refresh calls by result.",
		}, []string{"result"}),
		scheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_scheduled_total",
			Help:      "Refresh timers armed.",
		}),
		invalidate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidate_total",
			Help:      "Session invalidations.",
		}),
	}
	reg.MustRegister(c.authenticate, c.refresh, c.scheduled, c.invalidate)
	return c
}

func (c *Collector) Authenticated(err error) {
	if c == nil {
		return
	}
	c.authenticate.WithLabelValues(result(err)).Inc()
}

func (c *Collector) Refreshed(err error) {
	if c == nil {
		return
	}
	c.refresh.WithLabelValues(result(err)).Inc()
}

func (c *Collector) RefreshScheduled() {
	if c == nil {
		return
	}
	c.scheduled.Inc()
}

func (c *Collector) Invalidated() {
	if c == nil {
		return
	}
	c.invalidate.Inc()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
