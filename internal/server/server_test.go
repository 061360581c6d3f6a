package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"solsentinel/internal/queue"
	"solsentinel/internal/reliability"
	sentineltesting "solsentinel/internal/testing"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, cleanup := sentineltesting.NewTestDB(t, "sentinel")
	t.Cleanup(cleanup)

	q := queue.NewQueue(queue.NewMemoryStore(), queue.NewMemoryStore(), zerolog.Nop())
	health := reliability.NewHealthService(db, q, zerolog.Nop())
	return New(0, health, true, zerolog.Nop())
}

func TestHealthzReturnsOKWhenDatabaseIsReachable(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Healthy bool `json:"healthy"`
		DBOK    bool `json:"db_ok"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Healthy || !body.DBOK {
		t.Fatalf("expected healthy db-backed response, got %+v", body)
	}
}

func TestReadyzIsAShallowLivenessCheck(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", rec.Body.String())
	}
}

func TestHealthzReturns503WhenDatabaseIsClosed(t *testing.T) {
	db, cleanup := sentineltesting.NewTestDB(t, "sentinel")
	cleanup()

	q := queue.NewQueue(queue.NewMemoryStore(), queue.NewMemoryStore(), zerolog.Nop())
	health := reliability.NewHealthService(db, q, zerolog.Nop())
	s := New(0, health, true, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
