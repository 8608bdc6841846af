package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/michaelbrown/explorer/internal/assistant"
	"github.com/michaelbrown/explorer/internal/config"
	"github.com/michaelbrown/explorer/internal/lessons"
	"github.com/michaelbrown/explorer/internal/runner"
)

// maxBodyBytes bounds request bodies on the JSON API.
const maxBodyBytes = 1 << 20

// Server is the HTTP server for the explorer page and its API.
type Server struct {
	cfg         *config.Config
	runner      *runner.Runner
	lessons     *lessons.Content
	explainer   assistant.Explainer // nil when the assistant is disabled
	log         *zap.Logger
	playgrounds *PlaygroundManager
	router      chi.Router
	http        *http.Server
}

// New creates a new Server. explainer may be nil.
func New(cfg *config.Config, run *runner.Runner, explainer assistant.Explainer, log *zap.Logger) (*Server, error) {
	content, err := lessons.Load()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg:         cfg,
		runner:      run,
		lessons:     content,
		explainer:   explainer,
		log:         log,
		playgrounds: NewPlaygroundManager(),
		router:      chi.NewRouter(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)
		r.Use(limitBody)

		r.Get("/info", s.handleInfo)

		// Playground
		r.Post("/run", s.handleRun)
		r.Get("/run/ws", s.handleWebSocket)

		// Lessons
		r.Get("/lessons", s.handleLessons)
		r.Post("/lessons/variables", s.handleVariables)
		r.Post("/lessons/list", s.handleList)
		r.Get("/lessons/tuple", s.handleTuple)
		r.Post("/lessons/dict", s.handleDict)

		r.Post("/explain", s.handleExplain)

		// Run journal
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)
	})

	// SPA fallback
	r.Handle("/*", spaHandler())
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("explorer server starting",
		zap.String("url", "http://localhost"+addr),
		zap.String("backend", s.runner.Backend()),
		zap.Bool("assistant", s.explainer != nil),
	)
	return s.http.ListenAndServe()
}

// Shutdown cancels in-flight playground runs and gracefully shuts down the
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")
	s.playgrounds.CloseAll()

	if s.http == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
