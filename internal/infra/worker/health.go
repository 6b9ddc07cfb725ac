package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/roshhellwett/TeleAcademicBot/internal/resilience/circuitbreaker"
)

// SourceReporter exposes the per-source breaker status.
// *circuitbreaker.SourceBreakers implements it.
type SourceReporter interface {
	Snapshot() []circuitbreaker.SourceStatus
}

// ReadinessCheck checks a dependency. A non-nil error marks the worker not ready.
type ReadinessCheck func(ctx context.Context) error

// HealthServer provides HTTP endpoints for health checks.
// It implements three endpoints:
//   - /health: Liveness check (always returns 200 OK)
//   - /health/ready: Readiness check (200 if ready and every check passes, 503 if not)
//   - /health/sources: Circuit breaker status of every source
//
// The server supports graceful shutdown via context cancellation.
//
// Example usage:
//
//	healthServer := NewHealthServer(":9091", logger)
//	healthServer.AddReadinessCheck("database", db.PingContext)
//	healthServer.SetSourceReporter(breakers)
//	go func() {
//	    if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
//	        logger.Error("health server failed", slog.Any("error", err))
//	    }
//	}()
//	healthServer.SetReady(true)  // Mark as ready after initialization
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady *atomic.Bool
	server  *http.Server

	checks  map[string]ReadinessCheck
	sources SourceReporter
}

// healthResponse is the JSON response format for health check endpoints.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type sourcesResponse struct {
	Sources []circuitbreaker.SourceStatus `json:"sources"`
}

// readinessTimeout bounds every readiness check.
const readinessTimeout = 2 * time.Second

// NewHealthServer creates a new health check server.
//
// Parameters:
//   - addr: Server listen address (e.g., ":9091", "localhost:9091")
//   - logger: Structured logger for logging server events
//
// Returns:
//   - *HealthServer: Initialized health server (not started yet)
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	isReady := &atomic.Bool{}
	isReady.Store(false) // Start as not ready

	return &HealthServer{
		addr:    addr,
		logger:  logger,
		isReady: isReady,
		checks:  make(map[string]ReadinessCheck),
	}
}

// AddReadinessCheck registers a named dependency check for /health/ready.
// Must be called before Start.
func (h *HealthServer) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetSourceReporter enables /health/sources. Must be called before Start.
func (h *HealthServer) SetSourceReporter(r SourceReporter) {
	h.sources = r
}

// Handler returns the HTTP handler serving the health endpoints.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)
	mux.HandleFunc("/health/sources", h.handleSources)
	return mux
}

// Start starts the health check HTTP server.
// This is a blocking call that runs until the context is cancelled or an error occurs.
// It supports graceful shutdown with a 5-second timeout.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown
//
// Returns:
//   - error: http.ErrServerClosed on graceful shutdown, other errors on failure
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if err == http.ErrServerClosed {
			return err
		}
		h.logger.Error("health server failed", slog.Any("error", err))
		return err
	}
}

// SetReady sets the readiness state of the server.
// This affects the response of the /health/ready endpoint.
//
// Example:
//
//	// After initialization is complete
//	healthServer.SetReady(true)
//
//	// Before shutdown
//	healthServer.SetReady(false)
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

// handleLiveness always returns 200 OK with {"status":"ok"}.
func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReadiness returns 200 OK only when SetReady(true) was called and
// every registered check passes.
func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !h.isReady.Load() {
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
		return
	}

	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				h.logger.Warn("readiness check failed",
					slog.String("check", name),
					slog.Any("error", err))
				resp.Checks[name] = "failing"
				resp.Status = "not ready"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	h.writeJSON(w, code, resp)
}

// handleSources reports the breaker state of every source fetched so far.
func (h *HealthServer) handleSources(w http.ResponseWriter, r *http.Request) {
	if h.sources == nil {
		h.writeJSON(w, http.StatusNotFound, healthResponse{Status: "source status unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, sourcesResponse{Sources: h.sources.Snapshot()})
}

func (h *HealthServer) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
