package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/engine"
	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

// Server is the pulse HTTP API server. All routes are in-process calls
// against the local store; batch routes are invoked by a scheduler
// collaborator, not by this core itself.
type Server struct {
	db       *store.DB
	engine   *engine.Engine
	router   chi.Router
	version  string
	callouts engine.CalloutOpts
	started  time.Time
}

// New creates a new Server. callouts carries the configured synthesis window
// and confidence floor; zero values fall back to the engine defaults.
func New(db *store.DB, eng *engine.Engine, version string, callouts engine.CalloutOpts) *Server {
	s := &Server{
		db:       db,
		engine:   eng,
		version:  version,
		callouts: callouts,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/signals", s.handleEmitSignal)
		r.Post("/signals/{signalID}/supersede", s.handleSupersede)
		r.Get("/entities/{entityType}/{entityID}/signals", s.handleActiveSignals)

		r.Post("/callouts/generate", s.handleGenerateCallouts)
		r.Get("/callouts", s.handleListCallouts)

		r.Post("/bridge/run", s.handleRunBridge)
		r.Post("/emails/fanout", s.handleEmailFanout)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
