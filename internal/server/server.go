// Package server exposes the HTTP API: job submission, job status, history
// and export. Processing itself happens in the worker pool; the API only
// schedules and reads.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fepa-project/expense-ocr/internal/common"
	"github.com/fepa-project/expense-ocr/internal/export"
	"github.com/fepa-project/expense-ocr/internal/repository"
	"github.com/fepa-project/expense-ocr/internal/worker"
)

type Server struct {
	jobs     repository.JobRepository
	queue    *worker.Queue
	exporter *export.Service
	health   func(ctx context.Context) error
	logger   *slog.Logger

	http *http.Server
}

// New wires the router. health may be nil when there is nothing to probe.
func New(addr string, jobs repository.JobRepository, queue *worker.Queue, exporter *export.Service, health func(ctx context.Context) error, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		jobs:     jobs,
		queue:    queue,
		exporter: exporter,
		health:   health,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestContext)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/ocr", func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/scan", s.handleScan)
		r.Get("/", s.handleHistory)
		r.Get("/export", s.handleExport)
		r.Get("/{jobID}", s.handleGetJob)
	})

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requestContext copies chi's request ID into the application context so
// repository and worker logs can carry it.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = common.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// auth trusts the gateway-provided identity header. There is no session
// handling here; the upstream gateway authenticates and forwards the user ID.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeErr(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing X-User-ID header")
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), userID)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeErr(w, http.StatusServiceUnavailable, "UNHEALTHY", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errBody{"error": {Code: code, Message: message}})
}
