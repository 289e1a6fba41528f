package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cramlabs/cramd/internal/answer"
	"github.com/cramlabs/cramd/internal/config"
	"github.com/cramlabs/cramd/internal/extract"
	"github.com/cramlabs/cramd/internal/llm"
	"github.com/cramlabs/cramd/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API for the document Q&A service.
type Server struct {
	router    chi.Router
	sessions  *session.Manager
	extractor *extract.Service
	engine    *answer.Engine
	stats     *llm.Stats
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *session.Manager, extractor *extract.Service, engine *answer.Engine, stats *llm.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions:  sessions,
		extractor: extractor,
		engine:    engine,
		stats:     stats,
		log:       log,
		cfg:       cfg,
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

		r.Post("/api/sessions", s.handleCreateSession)
		r.Delete("/api/sessions/{sessionID}", s.handleDeleteSession)

		r.Post("/api/sessions/{sessionID}/documents", s.handleUpload)
		r.Get("/api/sessions/{sessionID}/documents", s.handleListDocuments)
		r.Post("/api/sessions/{sessionID}/documents/{docID}/activate", s.handleActivate)
		r.Delete("/api/sessions/{sessionID}/documents/{docID}", s.handleDeleteDocument)

		r.Post("/api/sessions/{sessionID}/ask", s.handleAsk)
		r.Get("/api/sessions/{sessionID}/history", s.handleGetHistory)
		r.Delete("/api/sessions/{sessionID}/history", s.handleClearHistory)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"backend": s.engine.State().String(),
	})
}
