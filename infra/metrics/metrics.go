// Package metrics registers the engine's Prometheus counters and
// histograms and exposes them on /metrics via promhttp, the same
// pattern the rest of the ecosystem uses for observability.
package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	ordersPlaced   *prometheus.CounterVec
	ordersRejected *prometheus.CounterVec
	cancels        *prometheus.CounterVec
	tradesTotal    prometheus.Counter
	rowErrors      prometheus.Counter
	matchLatency   prometheus.Histogram
)

// Init registers every collector exactly once; safe to call from
// multiple goroutines or repeatedly across tests.
func Init() {
	once.Do(func() {
		ordersPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickbook_orders_placed_total",
			Help: "Number of orders accepted by Place, by side.",
		}, []string{"side"})

		ordersRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickbook_orders_rejected_total",
			Help: "Number of orders rejected by Place, by reason.",
		}, []string{"reason"})

		cancels = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickbook_cancels_total",
			Help: "Number of Cancel calls, by outcome.",
		}, []string{"outcome"})

		tradesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickbook_trades_total",
			Help: "Number of individual fills produced across all Place calls.",
		})

		rowErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickbook_replay_row_errors_total",
			Help: "Number of malformed replay rows skipped.",
		})

		matchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tickbook_place_duration_seconds",
			Help:    "Wall-clock time spent inside OrderBook.Place.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		})

		prometheus.MustRegister(ordersPlaced, ordersRejected, cancels, tradesTotal, rowErrors, matchLatency)
		// The default registry already carries Go and process
		// collectors; register them only where they are missing.
		for _, c := range []prometheus.Collector{
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		} {
			if err := prometheus.Register(c); err != nil {
				var already prometheus.AlreadyRegisteredError
				if !errors.As(err, &already) {
					panic(err)
				}
			}
		}
	})
}

// Handler returns the promhttp handler for mounting under /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

func OrderPlaced(side string) {
	if ordersPlaced != nil {
		ordersPlaced.WithLabelValues(side).Inc()
	}
}

func OrderRejected(reason string) {
	if ordersRejected != nil {
		ordersRejected.WithLabelValues(reason).Inc()
	}
}

func CancelObserved(outcome string) {
	if cancels != nil {
		cancels.WithLabelValues(outcome).Inc()
	}
}

func TradesObserved(n int) {
	if tradesTotal != nil {
		tradesTotal.Add(float64(n))
	}
}

func RowErrorObserved() {
	if rowErrors != nil {
		rowErrors.Inc()
	}
}

func ObservePlaceDuration(seconds float64) {
	if matchLatency != nil {
		matchLatency.Observe(seconds)
	}
}
