// Package server exposes the dashboard over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/314clay/claude-dashboard/internal/config"
	"github.com/314clay/claude-dashboard/internal/embedding"
	"github.com/314clay/claude-dashboard/internal/graph"
	"github.com/314clay/claude-dashboard/internal/store"
)

// Server wires the store, the visibility engine and the similarity
// scorer behind the HTTP API.
type Server struct {
	store    *store.SQLiteStore
	engine   *graph.Engine
	scorer   *embedding.Scorer
	embedGen *embedding.Generator
	cfg      config.Config
	logger   *zap.Logger
	validate *validator.Validate
}

// New creates a server. scorer and embedGen may be nil when no
// embedding provider is configured; the related endpoints then return
// 503.
func New(st *store.SQLiteStore, scorer *embedding.Scorer, embedGen *embedding.Generator, cfg config.Config, logger *zap.Logger) *Server {
	return &Server{
		store:    st,
		engine:   graph.NewEngine(st),
		scorer:   scorer,
		embedGen: embedGen,
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
	}
}

// Handler builds the routed HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))

	origins := s.cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Post("/graph/visibility", s.handleVisibility)
		r.Get("/graph/proximity", s.handleProximity)

		r.Get("/sessions", s.handleSessions)
		r.Get("/sessions/{sessionID}/messages", s.handleSessionMessages)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/tools", s.handleTools)

		r.Route("/filters", func(r chi.Router) {
			r.Get("/", s.handleListFilters)
			r.Post("/", s.handleCreateFilter)
			r.Delete("/{filterID}", s.handleDeleteFilter)
			r.Get("/{filterID}/status", s.handleFilterStatus)
			r.Post("/{filterID}/score", s.handleScoreFilter)
		})

		r.Post("/embeddings/generate", s.handleGenerateEmbeddings)
		r.Get("/embeddings/stats", s.handleEmbeddingStats)
	})

	return r
}

// ListenAndServe runs the server until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// windowStart resolves the ?hours= query parameter against the
// configured default.
func (s *Server) windowStart(r *http.Request) (time.Time, error) {
	hours := s.cfg.Graph.WindowHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		h, err := parsePositiveInt(raw, "hours")
		if err != nil {
			return time.Time{}, err
		}
		hours = h
	}
	return time.Now().UTC().Add(-time.Duration(hours) * time.Hour), nil
}

func windowSince(hours int) time.Time {
	return time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
}
