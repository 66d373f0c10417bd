// Package httpapi serves the process's plain HTTP surface: a liveness
// probe and, when enabled, the Prometheus scrape endpoint and the
// websocket snapshot feed. It is deliberately built on net/http alone
// — there is nothing here (routing on three static paths) that would
// benefit from pulling in a router library the
// rest of the stack doesn't already use for this purpose.
package httpapi

import (
	"encoding/json"
	"net/http"

	"tickbook/infra/metrics"
)

// HealthReporter answers whether the engine is currently able to
// serve traffic.
type HealthReporter interface {
	Healthy() (bool, string)
}

// NewMux builds the HTTP handler tree. ws may be nil to omit the
// websocket route; metricsEnabled controls whether /metrics is
// mounted.
func NewMux(health HealthReporter, ws http.Handler, metricsEnabled bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthzHandler(health))
	if metricsEnabled {
		mux.Handle("/metrics", metrics.Handler())
	}
	if ws != nil {
		mux.Handle("/ws/depth", ws)
	}
	return mux
}

type healthResponse struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

func healthzHandler(health HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, detail := true, ""
		if health != nil {
			ok, detail = health.Healthy()
		}
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(healthResponse{OK: ok, Detail: detail})
	}
}
