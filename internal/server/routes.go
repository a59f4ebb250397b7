package server

import (
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/lexloop/internal/priority"
)

const maxListLimit = 500

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	table, ok := s.loadTable(w)
	if !ok {
		return
	}
	mastered, pending := priority.Counts(table)

	writeJSON(w, http.StatusOK, map[string]any{
		"total_remaining": priority.TotalRemaining(table),
		"items":           len(table),
		"mastered":        mastered,
		"pending":         pending,
		"top":             priority.Ranked(table, limitParam(r, 10)),
	})
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "item")
	name, err := url.PathUnescape(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item")
		return
	}

	table, ok := s.loadTable(w)
	if !ok {
		return
	}
	weight, known := table[priority.Item(name)]
	if !known {
		writeError(w, http.StatusNotFound, "unknown item")
		return
	}

	stats, err := s.db.Stats(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item":      name,
		"weight":    weight,
		"mastered":  weight == 0,
		"shown":     stats.Shown,
		"failed":    stats.Failed,
		"last_seen": stats.LastSeen,
	})
}

func (s *Server) handleExposures(w http.ResponseWriter, r *http.Request) {
	exps, err := s.db.RecentExposures(limitParam(r, 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exposures": exps})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.RecentRuns(limitParam(r, 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	if s.opts.CardPath == "" {
		writeError(w, http.StatusNotFound, "card output not configured")
		return
	}
	if _, err := os.Stat(s.opts.CardPath); err != nil {
		writeError(w, http.StatusNotFound, "no card rendered yet")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, s.opts.CardPath)
}

// loadTable reads the snapshot, writing an error response when it can't.
func (s *Server) loadTable(w http.ResponseWriter) (priority.Table, bool) {
	table, err := priority.Load(s.opts.StatePath)
	switch {
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	case table == nil:
		writeError(w, http.StatusNotFound, "no learning state yet")
		return nil, false
	}
	return table, true
}

func limitParam(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
