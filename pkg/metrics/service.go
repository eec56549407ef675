// Package metrics holds the collector's Prometheus counters.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	LinesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sel_lines_received_total",
		Help: "Lines assembled from the serial byte stream",
	})
	LineOverflows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sel_line_overflows_total",
		Help: "Partial lines discarded for exceeding the line buffer",
	})
	MalformedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sel_malformed_lines_total",
		Help: "Lines that could not be parsed into an event",
	})
	DuplicateLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sel_duplicate_lines_total",
		Help: "Lines rejected as already seen",
	})
	EventsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sel_events_accepted_total",
		Help: "Events committed to the event store",
	})
	EventsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sel_events_persisted_total",
		Help: "Events written to every persistence sink",
	})
	PersistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sel_persist_errors_total",
		Help: "Failed persistence attempts",
	})
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("Metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Metrics server failed", zap.Error(err))
	}
}
