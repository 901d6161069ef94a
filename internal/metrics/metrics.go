// Package metrics holds the Prometheus collectors of the configurator.
package metrics

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds every collector below plus the Go runtime collectors.
	Registry = prometheus.NewRegistry()

	// Transitions counts wizard inputs by the stage they left the session in.
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configurator_transitions_total",
			Help: "Total number of wizard inputs handled, by resulting stage",
		},
		[]string{"flow", "stage"},
	)

	// GatewayDuration observes the latency of configurator calls by operation and outcome.
	GatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "configurator_gateway_duration_seconds",
			Help:    "Duration of catalog gateway calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation", "outcome"},
	)

	// VariantsCommitted counts terminal commits by whether the variant was created or reused.
	VariantsCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configurator_variants_committed_total",
			Help: "Total number of committed configurations",
		},
		[]string{"result"},
	)

	// ActiveSessions reports the number of sessions held by the store, counted on scrape.
	ActiveSessions = &sessionGauge{
		desc: prometheus.NewDesc(
			"configurator_active_sessions",
			"Number of users with an active wizard session",
			nil, nil,
		),
	}
)

// scrapeTimeout bounds the store lookup behind ActiveSessions.
const scrapeTimeout = 2 * time.Second

// sessionGauge asks the session store for its size at collection time, so
// expired sessions and sessions written by other replicas are reflected.
type sessionGauge struct {
	desc  *prometheus.Desc
	count atomic.Pointer[func(context.Context) (int, error)]
}

// CountWith installs the function used to count sessions. Nil disables the gauge.
func (g *sessionGauge) CountWith(fn func(context.Context) (int, error)) {
	if fn == nil {
		g.count.Store(nil)
		return
	}
	g.count.Store(&fn)
}

func (g *sessionGauge) Describe(ch chan<- *prometheus.Desc) {
	ch <- g.desc
}

func (g *sessionGauge) Collect(ch chan<- prometheus.Metric) {
	fn := g.count.Load()
	if fn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()
	n, err := (*fn)(ctx)
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, float64(n))
}

func init() {
	Registry.MustRegister(
		Transitions,
		GatewayDuration,
		VariantsCommitted,
		ActiveSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
