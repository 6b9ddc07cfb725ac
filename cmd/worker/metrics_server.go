package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsShutdownGrace = 5 * time.Second

// newMetricsServer returns the /metrics server for METRICS_PORT.
// Health checks are served separately on WORKER_HEALTH_PORT.
func newMetricsServer(port int, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// startMetricsServer serves the default Prometheus registry until ctx is done.
// A listen failure is logged and does not stop the worker.
func startMetricsServer(ctx context.Context, logger *slog.Logger, port int) *http.Server {
	srv := newMetricsServer(port, prometheus.DefaultGatherer)
	log := logger.With(slog.String("addr", srv.Addr))

	go func() {
		log.Info("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped unexpectedly", slog.Any("error", err))
		}
	}()

	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown", slog.Any("error", err))
		}
	})
	return srv
}
