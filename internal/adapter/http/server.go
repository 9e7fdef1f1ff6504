package http

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/pipeline"
)

// Service is the pipeline surface the HTTP API reads from.
type Service interface {
	sharedobs.ReadinessChecker
	Rank(ctx context.Context, window domain.DateWindow) (pipeline.RankingRun, error)
	Latest() (pipeline.AssessmentRun, bool)
	ScorePoint(ctx context.Context, window domain.DateWindow, lat, lon float64) (domain.AssessedLocation, error)
}

// Server exposes health, readiness, metrics and the read-only risk API.
type Server struct {
	httpServer   *http.Server
	svc          Service
	lookbackDays int
	logger       *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and /v1 routes.
// Windows missing start or end fall back to the last lookbackDays days.
func NewServer(addr string, svc Service, lookbackDays int, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:          svc,
		lookbackDays: lookbackDays,
		logger:       logger,
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(svc))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/rankings", s.handleRankings)
		r.Get("/assessments", s.handleAssessments)
		r.Get("/score", s.handleScore)
	})

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

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(w, r)
	if !ok {
		return
	}
	run, err := s.svc.Rank(r.Context(), window)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, run)
}

func (s *Server) handleAssessments(w http.ResponseWriter, _ *http.Request) {
	run, ok := s.svc.Latest()
	if !ok {
		writeProblem(w, http.StatusServiceUnavailable, "no assessment run has completed yet")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, run)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	lat, err := parseCoordinate(r, "lat", 90)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := parseCoordinate(r, "lon", 180)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, err.Error())
		return
	}
	window, ok := s.window(w, r)
	if !ok {
		return
	}

	a, err := s.svc.ScorePoint(r.Context(), window, lat, lon)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, a)
}

func (s *Server) window(w http.ResponseWriter, r *http.Request) (domain.DateWindow, bool) {
	q := r.URL.Query()
	window, err := domain.ParseDateWindow(q.Get("start"), q.Get("end"), s.lookbackDays)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, err.Error())
		return domain.DateWindow{}, false
	}
	return window, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeProblem(w, http.StatusGatewayTimeout, "request cancelled")
		return
	}
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	writeProblem(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func parseCoordinate(r *http.Request, name string, limit float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New("missing " + name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("invalid " + name + ": " + strconv.Quote(raw))
	}
	if math.IsNaN(v) || v < -limit || v > limit {
		return 0, errors.New(name + " out of range")
	}
	return v, nil
}

func writeProblem(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
