package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/txxxxz/autonote/internal/config"
	"github.com/txxxxz/autonote/internal/export"
	"github.com/txxxxz/autonote/internal/pipeline"
	"github.com/txxxxz/autonote/internal/qa"
	"github.com/txxxxz/autonote/internal/repository"
	"github.com/txxxxz/autonote/internal/vectorstore"
)

// Server is the HTTP API server for autonote.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	tasks    *pipeline.TaskManager
	repo     *repository.Store
	vectors  *vectorstore.Store
	qa       *qa.Service
	exports  *export.Service
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(p *pipeline.Pipeline, tasks *pipeline.TaskManager, repo *repository.Store, vectors *vectorstore.Store, qaSvc *qa.Service, exports *export.Service, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		pipeline: p,
		tasks:    tasks,
		repo:     repo,
		vectors:  vectors,
		qa:       qaSvc,
		exports:  exports,
		log:      log,
		cfg:      cfg,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/sessions/upload", s.handleUpload)
			r.Get("/sessions", s.handleListSessions)
			r.Get("/sessions/{sessionID}", s.handleGetSession)
			r.Delete("/sessions/{sessionID}", s.handleDeleteSession)

			r.Post("/sessions/{sessionID}/parse", s.handleParse)
			r.Post("/sessions/{sessionID}/layout", s.handleLayout)
			r.Post("/sessions/{sessionID}/outline", s.handleOutline)
			r.Get("/sessions/{sessionID}/outline", s.handleGetOutline)

			r.Post("/sessions/{sessionID}/notes", s.handleGenerateNotes)
			r.Get("/sessions/{sessionID}/notes", s.handleGetNotes)
			r.Get("/tasks/{taskID}", s.handleTaskStatus)
			r.Get("/tasks/{taskID}/events", s.handleTaskEvents)

			r.Post("/sessions/{sessionID}/cards", s.handleBuildCards)
			r.Get("/sessions/{sessionID}/cards", s.handleGetCards)
			r.Post("/sessions/{sessionID}/mock", s.handleBuildMock)
			r.Get("/sessions/{sessionID}/mock", s.handleGetMock)
			r.Post("/sessions/{sessionID}/mindmap", s.handleBuildMindmap)
			r.Get("/sessions/{sessionID}/mindmap", s.handleGetMindmap)

			r.Post("/sessions/{sessionID}/export/{kind}", s.handleExport)
			r.Get("/sessions/{sessionID}/export/{kind}", s.handleDownload)

			r.Post("/sessions/{sessionID}/qa", s.handleAsk)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
