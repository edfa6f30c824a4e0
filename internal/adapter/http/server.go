package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/rainfall-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxSeriesBytes = 8 << 20

// SeriesProcessor turns a raw series into a report.
type SeriesProcessor interface {
	ProcessSeries(series domain.RawSeries) (domain.Report, error)
}

// Server exposes health, readiness, metrics, and on-demand series processing.
type Server struct {
	httpServer *http.Server
	processor  SeriesProcessor
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /v1/series routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, processor SeriesProcessor, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		processor: processor,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/series", s.handleSeries)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	var series domain.RawSeries
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSeriesBytes))
	if err := dec.Decode(&series); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid series: " + err.Error()})
		return
	}

	report, err := s.processor.ProcessSeries(series)
	if err != nil {
		if errors.Is(err, domain.ErrOutOfOrder) {
			sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("process series failed", "error", err, "station_id", series.StationID)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	sharedobs.WriteJSON(w, http.StatusOK, report)
}
