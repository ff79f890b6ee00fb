package scenario

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/interview-journey/backend/internal/model/scenario"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(scenario.NewMemoryStore(scenario.Seed())).RegisterRoutes(r)
	return r
}

func TestListScenarios(t *testing.T) {
	r := setupRouter()
	req := httptest.NewRequest(http.MethodGet, "/scenarios", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var items []scenario.Scenario
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != len(scenario.Seed()) {
		t.Fatalf("expected %d scenarios, got %d", len(scenario.Seed()), len(items))
	}
}

func TestGetScenario(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/scenarios/cache_invalidation", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var item scenario.Scenario
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if item.ID != "cache_invalidation" {
		t.Fatalf("unexpected scenario %q", item.ID)
	}

	req = httptest.NewRequest(http.MethodGet, "/scenarios/nope", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}
