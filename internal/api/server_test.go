package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/valentimdigital/IADESPEDIDA/internal/record"
	"github.com/valentimdigital/IADESPEDIDA/internal/store"
	"github.com/valentimdigital/IADESPEDIDA/internal/takeover"
)

type fakeRecords struct {
	recs  map[string]record.Record
	audit []store.AuditEntry
}

func (f *fakeRecords) GetRecord(_ context.Context, id string) (record.Record, error) {
	return f.recs[id], nil
}

func (f *fakeRecords) RecentLookupAudit(context.Context, int) ([]store.AuditEntry, error) {
	return f.audit, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(recs map[string]record.Record) (*Server, *takeover.Lock) {
	locks := takeover.New(time.Hour, discardLogger())
	srv := NewServer(8750, &fakeRecords{recs: recs}, locks)
	return srv, locks
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(nil)

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "valentina" {
		t.Errorf("expected agent valentina, got %q", body["agent"])
	}
}

func TestRecordEndpoint(t *testing.T) {
	srv, _ := newTestServer(map[string]record.Record{
		"known@s.whatsapp.net": {CNPJ: "11222333000181", RazaoSocial: "ACME LTDA"},
	})

	req := httptest.NewRequest("GET", "/api/v1/records/known@s.whatsapp.net", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rec record.Record
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if rec.CNPJ != "11222333000181" {
		t.Errorf("cnpj = %q", rec.CNPJ)
	}

	req = httptest.NewRequest("GET", "/api/v1/records/unknown@s.whatsapp.net", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown conversation, got %d", w.Code)
	}
}

func TestChecklistEndpoint(t *testing.T) {
	srv, _ := newTestServer(map[string]record.Record{
		"c@s.whatsapp.net": {CNPJ: "11222333000181"},
	})

	req := httptest.NewRequest("GET", "/api/v1/records/c@s.whatsapp.net/checklist", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Complete bool     `json:"complete"`
		Missing  []string `json:"missing"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Complete {
		t.Error("record with only a CNPJ must not be complete")
	}
	if len(body.Missing) == 0 {
		t.Error("expected missing items")
	}
}

func TestLockEndpoints(t *testing.T) {
	srv, locks := newTestServer(nil)
	locks.HandleOutgoing("c@s.whatsapp.net", "estou iniciando seu atendimento")

	req := httptest.NewRequest("GET", "/api/v1/locks/c@s.whatsapp.net", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	var state map[string]any
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if state["silenced"] != true || state["locked"] != true {
		t.Errorf("state = %v", state)
	}

	req = httptest.NewRequest("DELETE", "/api/v1/locks/c@s.whatsapp.net", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if locks.IsActive("c@s.whatsapp.net") {
		t.Error("lock must be cleared after DELETE")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv, _ := newTestServer(nil)

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
