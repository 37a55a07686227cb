// Package api exposes the annotation HTTP interface: the static UI, the
// rating endpoints, and operational routes.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/internal/ratings"
)

// Config controls the HTTP surface.
type Config struct {
	// WebDir is the directory of static UI assets; empty disables the UI.
	WebDir string
	// BooksPath is the enriched books artifact served to the UI; empty
	// disables the route.
	BooksPath string
	// RequestTimeout bounds each request (default 30s).
	RequestTimeout time.Duration
	// Registry backs the /metrics endpoint; nil uses the default registry.
	Registry *prometheus.Registry
}

// Server wires HTTP handlers to the ratings store.
type Server struct {
	router chi.Router
	store  ratings.Store
	logger *zap.Logger
	cfg    Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store ratings.Store, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	s := &Server{store: store, logger: logger, cfg: cfg}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(corsMiddleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/rate", s.rate)
		r.Get("/ratings", s.listRatings)
	})

	if cfg.BooksPath != "" {
		r.Get("/data/books.json", s.serveBooks)
	}
	if cfg.WebDir != "" {
		r.Handle("/*", http.FileServer(neuteredDir{http.Dir(cfg.WebDir)}))
	}

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) metricsHandler() http.Handler {
	if s.cfg.Registry != nil {
		return promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

type rateRequest struct {
	BookID string `json:"book_id"`
	Rating string `json:"rating"`
}

func (s *Server) rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.BookID == "" || req.Rating == "" {
		writeError(w, http.StatusBadRequest, "missing book_id or rating")
		return
	}
	verdict := ratings.Rating(req.Rating)
	if err := verdict.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	total, err := s.store.Set(r.Context(), req.BookID, verdict)
	if err != nil {
		s.logger.Error("save rating failed", zap.String("book_id", req.BookID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save rating")
		return
	}
	s.logger.Info("rating saved",
		zap.String("book_id", req.BookID),
		zap.String("rating", req.Rating),
		zap.Int("total", total),
	)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "total_ratings": total})
}

func (s *Server) serveBooks(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.BooksPath)
}

func (s *Server) listRatings(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.All(r.Context())
	if err != nil {
		s.logger.Error("list ratings failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load ratings")
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware mirrors the permissive policy the single-user UI expects.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// neuteredDir serves files but refuses directory listings.
type neuteredDir struct {
	fs http.FileSystem
}

func (d neuteredDir) Open(name string) (http.File, error) {
	f, err := d.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		index := name + "/index.html"
		idx, err := d.fs.Open(index)
		if err != nil {
			f.Close()
			return nil, os.ErrNotExist
		}
		idx.Close()
	}
	return f, nil
}
