package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Server is the HTTP API server for docmark.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	validate     *validator.Validate
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		validate:     validator.New(),
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocmarkAPIKey, s.log))

		r.Post("/api/analyze", s.handleAnalyze)
		r.Get("/api/analyze/{jobID}/status", s.handleAnalyzeStatus)
		r.Get("/api/analyze/{jobID}/result", s.handleJobResult)
		r.Get("/api/analyze/{jobID}/pdf", s.handleJobPDF)
		r.Get("/api/analyze/{jobID}/report", s.handleJobReport)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/results", s.handleListResults)
		r.Get("/api/results/{hash}", s.handleGetResult)
		r.Get("/api/results/{hash}/pdf", s.handleGetPDF)
		r.Get("/api/results/{hash}/report", s.handleGetReport)
		r.Delete("/api/results/{hash}", s.handleDeleteResult)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
