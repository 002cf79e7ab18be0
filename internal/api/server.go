package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dgallion1/chatrelay/internal/config"
	"github.com/dgallion1/chatrelay/internal/evaluate"
	"github.com/dgallion1/chatrelay/internal/feedback"
	"github.com/dgallion1/chatrelay/internal/orchestrate"
)

// Deps are the services behind the HTTP API. Evaluator, Jobs and Stats are
// nil when Orchestrate credentials are not configured.
type Deps struct {
	Feedback  *feedback.Store
	Evaluator *evaluate.Evaluator
	Jobs      *evaluate.Orchestrator
	Stats     *orchestrate.Stats
}

// Server is the HTTP API server for the chat relay.
type Server struct {
	router chi.Router
	deps   Deps
	log    *zap.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *zap.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
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
	r.Use(CORS(s.cfg.CORSOrigin))

	// Public endpoints. The chat widget posts feedback from the browser and
	// cannot hold a secret.
	r.Get("/health", s.handleHealth)
	r.Post("/api/feedback", s.handleFeedback)

	r.Group(func(r chi.Router) {
		if s.cfg.RelayAPIKey != "" {
			r.Use(AuthMiddleware(s.cfg.RelayAPIKey, s.log))
		}

		r.Get("/api/logs", s.handleExportLogs)

		r.Post("/api/evaluate", s.handleEvaluate)
		r.Post("/api/evaluate/jobs", s.handleSubmitEvaluation)
		r.Get("/api/evaluate/jobs/{jobID}", s.handleEvaluationStatus)
		r.Get("/api/evaluate/jobs/{jobID}/results", s.handleEvaluationResults)

		r.Get("/api/stats/agent", s.handleAgentStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
