// Package api is the operational HTTP surface: health, status, record
// inspection, takeover lock management and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valentimdigital/IADESPEDIDA/internal/record"
	"github.com/valentimdigital/IADESPEDIDA/internal/store"
	"github.com/valentimdigital/IADESPEDIDA/internal/takeover"
)

// Records is the slice of the store the API reads from.
type Records interface {
	GetRecord(ctx context.Context, conversationID string) (record.Record, error)
	RecentLookupAudit(ctx context.Context, limit int) ([]store.AuditEntry, error)
}

type Server struct {
	router  *chi.Mux
	port    int
	records Records
	locks   *takeover.Lock
	started time.Time
}

func NewServer(port int, records Records, locks *takeover.Lock) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		port:    port,
		records: records,
		locks:   locks,
		started: time.Now(),
	}

	router.Get("/health", s.health)
	router.Get("/metrics", promhttp.Handler().ServeHTTP)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Get("/records/{id}", s.getRecord)
		r.Get("/records/{id}/checklist", s.getChecklist)
		r.Get("/lookups/audit", s.getLookupAudit)
		r.Get("/locks/{id}", s.getLock)
		r.Delete("/locks/{id}", s.deleteLock)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":  "valentina",
		"status": "running",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.records.GetRecord(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rec.IsEmpty() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no record for conversation"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) getChecklist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.records.GetRecord(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	missing := rec.Checklist()
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id,
		"complete":        len(missing) == 0,
		"missing":         missing,
	})
}

func (s *Server) getLookupAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.records.RecentLookupAudit(r.Context(), 100)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) getLock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	silenced, until, locked := s.locks.State(id)
	resp := map[string]any{
		"conversation_id": id,
		"silenced":        silenced,
		"locked":          locked,
	}
	if locked {
		resp["locked_until"] = until
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteLock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.locks.Clear(id)
	writeJSON(w, http.StatusOK, map[string]string{"conversation_id": id, "status": "cleared"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
