// Package api exposes the translation toolbox over HTTP. Each endpoint
// wraps one pipeline capability so external agents can drive the
// workflow step by step.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hyeonseo2/hf-translation-hub/internal/ghpub"
	"github.com/hyeonseo2/hf-translation-hub/internal/ledger"
	"github.com/hyeonseo2/hf-translation-hub/internal/project"
)

// Publisher is the slice of ghpub the server needs; tests swap in fakes.
type Publisher interface {
	Publish(ctx context.Context, req ghpub.Request) *ghpub.Result
}

// InReviewLister is implemented by publishers that can report which
// source files already have an open translation PR upstream.
type InReviewLister interface {
	InReviewPaths(ctx context.Context, cfg *project.Config, language string) (map[string]bool, error)
}

// Server carries the shared dependencies of all tool handlers.
type Server struct {
	registry  *project.Registry
	ledger    *ledger.Ledger
	publisher Publisher
	root      string
	log       zerolog.Logger
}

// Config wires a Server.
type Config struct {
	Registry  *project.Registry
	Ledger    *ledger.Ledger
	Publisher Publisher
	// Root is the default repository checkout used when a request does
	// not name one.
	Root string
	Log  zerolog.Logger
}

func NewServer(cfg Config) *Server {
	return &Server{
		registry:  cfg.Registry,
		ledger:    cfg.Ledger,
		publisher: cfg.Publisher,
		root:      cfg.Root,
		log:       cfg.Log,
	}
}

// Router assembles the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/tools", func(r chi.Router) {
		r.Post("/search_translation_files", s.handleSearchFiles)
		r.Post("/get_file_content", s.handleGetFileContent)
		r.Post("/generate_translation_prompt", s.handleGeneratePrompt)
		r.Post("/validate_translation", s.handleValidate)
		r.Post("/save_translation_result", s.handleSave)
		r.Post("/create_github_pr", s.handleCreatePR)
		r.Get("/get_project_config", s.handleProjectConfig)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, CodeNotFound, "no such endpoint")
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
