// Package metrics exposes Prometheus-format metrics on a dedicated listener
// and defines the counters incremented by the escrow API handlers.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// Operation counters. Registered lazily on first use.
var (
	EscrowsCreated       = metrics.NewCounter("escrow_created_total")
	EscrowsSigned        = metrics.NewCounter("escrow_signed_total")
	EscrowsReleased      = metrics.NewCounter("escrow_released_total")
	EscrowsReconstructed = metrics.NewCounter("escrow_reconstructed_total")
	OperationFailures    = metrics.NewCounter("escrow_operation_failures_total")
)

// MetricsServer serves the /metrics endpoint on its own address so the
// scrape surface stays off the public API listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given service name and listen address.
func New(name, addr string) (*MetricsServer, error) {
	if addr == "" {
		return nil, fmt.Errorf("metrics listen address must not be empty")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Service-Name", name)
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{Addr: addr, Handler: mux},
	}, nil
}

// ListenAndServe blocks serving metrics until the server is shut down.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
