// Package httpapi serves a read-only view of a running scan, so progress can
// be watched from a browser or scripted against while the CLI keeps the
// terminal.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/subprober/internal/scheduler"
	"github.com/hamed0406/subprober/internal/sink"
)

// ProgressSource exposes the live scan snapshot.
type ProgressSource interface {
	Progress() scheduler.Progress
}

// ResultSource exposes what has already been flushed.
type ResultSource interface {
	Recent() []sink.Record
	Written() uint64
}

type Server struct {
	Logger  *zap.Logger
	Scan    ProgressSource
	Results ResultSource
}

func NewServer(l *zap.Logger, scan ProgressSource, results ResultSource) *Server {
	return &Server{Logger: l, Scan: scan, Results: results}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/progress", s.handleProgress)
	r.Get("/api/results", s.handleResults)

	return r
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Scan.Progress())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"written": s.Results.Written(),
		"recent":  s.Results.Recent(),
	})
}
