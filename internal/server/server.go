package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/lexloop/internal/store"
)

// Options locate the files the server reports on.
type Options struct {
	StatePath string // weights snapshot
	CardPath  string // last rendered card PNG, optional
	Version   string
}

// Server is the lexloop progress API. It only reads: the learning loop
// remains the single writer of the state file and journal.
type Server struct {
	db      *store.DB
	opts    Options
	router  chi.Router
	started time.Time
}

// New creates a new Server over the journal and state file.
func New(db *store.DB, opts Options) *Server {
	s := &Server{
		db:      db,
		opts:    opts,
		started: time.Now(),
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
		r.Get("/progress", s.handleProgress)
		r.Get("/items/{item}", s.handleItem)
		r.Get("/exposures", s.handleExposures)
		r.Get("/runs", s.handleRuns)
		r.Get("/card", s.handleCard)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.opts.Version,
		"uptime":     time.Since(s.started).Seconds(),
		"db":         dbOK,
		"db_path":    s.db.Path,
		"state_path": s.opts.StatePath,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
