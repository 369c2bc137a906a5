// Package metrics exposes prometheus collectors for the account flows.
package metrics

import (
	"bitwise74/account-api/internal/account"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "account_api"

type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	swept      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Account operations by name and outcome kind.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Account operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_tokens_swept_total",
			Help:      "Expired verification tokens cleared by the background sweeper.",
		}),
	}

	m.registry.MustRegister(
		m.operations,
		m.duration,
		m.swept,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Observe records one finished operation. A nil err counts as "ok", anything
// else under its error kind.
func (m *Metrics) Observe(operation string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = account.KindOf(err)
	}

	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) Swept(n int64) {
	m.swept.Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
