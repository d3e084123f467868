package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"voxspot/internal/core"
	"voxspot/internal/playback"
)

const shutdownTimeout = 10 * time.Second

var playbackStates = []playback.State{playback.Idle, playback.Resolving, playback.Playing, playback.Paused}

// StatusSource reports the current playback session.
type StatusSource interface {
	Session() playback.Session
}

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

type Metrics struct {
	MatchesTotal      *prometheus.CounterVec
	PlaybackTotal     *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	CacheFetchesTotal *prometheus.CounterVec
	PlaybackState     *prometheus.GaugeVec
}

// NewServer builds the HTTP server and its metrics on a private registry.
// ready may be nil, in which case the service always reports ready.
func NewServer(config *core.ServerConfig, logger *zap.Logger, status StatusSource, ready func() bool) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := newMetrics(registry)

	mux := setupRoutes(logger, registry, status, ready)

	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, mux),
		metrics: metrics,
	}
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		MatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxspot_matches_total",
				Help: "Total number of phrase matches by resulting request kind",
			},
			[]string{"kind"},
		),
		PlaybackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxspot_playback_total",
				Help: "Total number of playback starts",
			},
			[]string{"kind", "status"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxspot_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "type"},
		),
		CacheFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxspot_cache_fetches_total",
				Help: "Total number of entity cache refreshes",
			},
			[]string{"cache", "status"},
		),
		PlaybackState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "voxspot_playback_state",
				Help: "Current playback state, 1 for the active state",
			},
			[]string{"state"},
		),
	}

	reg.MustRegister(
		metrics.MatchesTotal,
		metrics.PlaybackTotal,
		metrics.ErrorsTotal,
		metrics.CacheFetchesTotal,
		metrics.PlaybackState,
	)
	metrics.setState(playback.Idle.String())
	return metrics
}

func (m *Metrics) setState(current string) {
	for _, s := range playbackStates {
		value := 0.0
		if s.String() == current {
			value = 1
		}
		m.PlaybackState.WithLabelValues(s.String()).Set(value)
	}
}

func setupRoutes(logger *zap.Logger, gatherer prometheus.Gatherer, status StatusSource, ready func() bool) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok", "service": "voxspot"})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "service": "voxspot"})
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ready", "service": "voxspot"})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		if status == nil {
			writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, logger, http.StatusOK, status.Session())
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", homeHandler(logger))

	return mux
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>voxspot</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">voxspot</h1>
    <p>Spotify voice control skill</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><a href="/status">Status</a> - Playback session</div>
    <div class="endpoint"><a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint"><a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint"><a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
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

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

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

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

func (s *Server) RecordMatch(kind string) {
	s.metrics.MatchesTotal.WithLabelValues(kind).Inc()
}

func (s *Server) RecordPlayback(kind, status string) {
	s.metrics.PlaybackTotal.WithLabelValues(kind, status).Inc()
}

func (s *Server) RecordPlaybackState(state string) {
	s.metrics.setState(state)
}

func (s *Server) RecordCacheFetch(cache, status string) {
	s.metrics.CacheFetchesTotal.WithLabelValues(cache, status).Inc()
}

func (s *Server) RecordError(component, errorType string) {
	s.metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
