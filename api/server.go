package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codeflow-ai/codeflow/api/handlers"
)

// RouterConfig holds the pieces the router is assembled from.
type RouterConfig struct {
	Sessions *handlers.SessionHandler
	Run      *handlers.RunHandler
	Health   *handlers.HealthHandler
	Logger   *zap.Logger

	// Version info served under /version.
	Version   string
	BuildTime string
	GitCommit string

	// RateLimitRPS applies a per-IP limit when > 0.
	RateLimitRPS   float64
	RateLimitBurst int

	// ServeMetrics exposes /metrics on the same listener.
	ServeMetrics bool

	// TracingEnabled wraps every request in an OTel server span.
	TracingEnabled bool
}

// NewRouter assembles the full HTTP handler: routes plus the standard
// middleware chain (recovery, request IDs, logging, optional tracing
// and rate limiting).
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.HandleFunc("GET /health", cfg.Health.HandleHealth)
		mux.HandleFunc("GET /healthz", cfg.Health.HandleHealth)
		mux.HandleFunc("GET /ready", cfg.Health.HandleReady)
		mux.HandleFunc("GET /version", cfg.Health.HandleVersion(cfg.Version, cfg.BuildTime, cfg.GitCommit))
	}
	if cfg.Sessions != nil {
		mux.HandleFunc("POST /v1/exec", cfg.Sessions.HandleExecOnce)
		mux.HandleFunc("POST /v1/sessions", cfg.Sessions.HandleCreate)
		mux.HandleFunc("POST /v1/sessions/{id}/exec", cfg.Sessions.HandleExec)
		mux.HandleFunc("GET /v1/sessions/{id}/state", cfg.Sessions.HandleState)
		mux.HandleFunc("DELETE /v1/sessions/{id}", cfg.Sessions.HandleDelete)
	}
	if cfg.Run != nil {
		mux.HandleFunc("POST /v1/run", cfg.Run.HandleRun)
	}
	if cfg.ServeMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	middlewares := []Middleware{
		Recovery(logger),
		SecurityHeaders(),
		RequestID(),
		RequestLogger(logger),
	}
	if cfg.TracingEnabled {
		middlewares = append(middlewares, OTelTracing())
	}
	if cfg.RateLimitRPS > 0 {
		middlewares = append(middlewares, RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	return Chain(mux, middlewares...)
}
