package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
)

const shutdownTimeout = 10 * time.Second

// ReadinessCheck reports whether the service can take commands.
type ReadinessCheck func() bool

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

func NewServer(config *core.ServerConfig, metrics *Metrics, ready ReadinessCheck, logger *zap.Logger) *Server {
	mux := setupRoutes(metrics, ready, logger)

	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, mux),
		metrics: metrics,
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

const serviceName = "sthashior"

type healthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func setupRoutes(metrics *Metrics, ready ReadinessCheck, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok", logger)
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			writeStatus(w, http.StatusServiceUnavailable, "waiting for audio node", logger)
			return
		}
		writeStatus(w, http.StatusOK, "ready", logger)
	})

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /{$}", homeHandler(logger))

	return mux
}

func writeStatus(w http.ResponseWriter, status int, state string, logger *zap.Logger) {
	body, err := json.Marshal(healthStatus{Status: state, Service: serviceName})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Debug("Failed to write status", zap.String("state", state), zap.Error(err))
	}
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Sthashior</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #5865F2; }
    </style>
</head>
<body>
    <h1>🎵 Sthashior</h1>
    <p>Discord music bot backed by Lavalink</p>

    <h2>Endpoints</h2>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Audio node readiness</div>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}
