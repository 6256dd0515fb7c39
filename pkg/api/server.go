package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/pulsewave/pkg/cluster"
	"github.com/cuemby/pulsewave/pkg/engine"
	"github.com/cuemby/pulsewave/pkg/log"
	"github.com/cuemby/pulsewave/pkg/metrics"
)

// Server is the control-plane HTTP server described in §4.19. Grounded
// on the teacher's HealthServer: a plain *http.ServeMux behind a
// *http.Server with explicit timeouts, no external router.
type Server struct {
	pool   *engine.Pool
	node   *cluster.Node // nil when cluster mode is disabled
	nodeID string
	region string

	mux  *http.ServeMux
	http *http.Server

	logger zerolog.Logger
}

// NewServer constructs the control plane. node may be nil if cluster
// mode is disabled, in which case /cluster/config is not registered.
func NewServer(pool *engine.Pool, node *cluster.Node, nodeID, region string) *Server {
	s := &Server{
		pool:   pool,
		node:   node,
		nodeID: nodeID,
		region: region,
		logger: log.WithComponent("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.instrument("/health", s.handleHealth))
	mux.HandleFunc("/health/cluster", s.instrument("/health/cluster", s.handleHealthCluster))
	mux.HandleFunc("/config", s.instrument("/config", s.handleConfig))
	if node != nil {
		mux.HandleFunc("/cluster/config", s.instrument("/cluster/config", s.handleClusterConfig))
		mux.HandleFunc("/cluster/join", s.instrument("/cluster/join", s.handleClusterJoin))
	}
	s.mux = mux

	return s
}

// Start runs the control plane's HTTP server; it blocks until the
// server stops (normally via Shutdown, which returns http.ErrServerClosed).
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("control-plane API listening")
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Handler exposes the underlying mux, for tests and for embedding
// behind an httptest.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// instrument wraps a handler with the metrics recorded for every
// control-plane request, per §4.19.
func (s *Server) instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		timer := metrics.NewTimer()

		h(rec, r)

		timer.ObserveDurationVec(metrics.APIRequestDuration, path)
		metrics.APIRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
