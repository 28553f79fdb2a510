package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
	"github.com/couchcryptid/prevailing-winds/internal/observability"
	"github.com/couchcryptid/prevailing-winds/internal/selection"
)

// Service is the selection pipeline as seen by the HTTP API.
type Service interface {
	CheckReadiness(ctx context.Context) error
	Metadata() (domain.Metadata, bool)
	Catalogs() domain.Catalogs
	State() *selection.State
	Select(req selection.Request) (selection.Selection, error)
	Summarize(ctx context.Context, req selection.Request) (domain.Summary, error)
}

// Server exposes the selection API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        Service
	validate   *validator.Validate
	upgrader   websocket.Upgrader
	logger     *slog.Logger
	metrics    *observability.Metrics

	stop     chan struct{}
	stopOnce sync.Once
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the /api/v1 routes.
func NewServer(addr string, svc Service, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// WriteTimeout stays unset for websocket streams.
			IdleTimeout: 60 * time.Second,
		},
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger:  logger,
		metrics: metrics,
		stop:    make(chan struct{}),
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/meta", s.handleMeta)
	mux.HandleFunc("PUT /api/v1/zoom", s.handleSetZoom)
	mux.HandleFunc("POST /api/v1/selection", s.handleSelect)
	mux.HandleFunc("GET /api/v1/selection", s.handleSelection)
	mux.HandleFunc("GET /api/v1/selection/area", s.handleSelectionArea)
	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/ws", s.handleStream)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown closes websocket streams and gracefully drains connections within the
// given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
