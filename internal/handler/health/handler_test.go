package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		ping   pingFunc
		status int
		body   string
	}{
		{"ok", func(context.Context) error { return nil }, http.StatusOK, `{"status":"ok"}`},
		{"store down", func(context.Context) error { return errors.New("disk gone") }, http.StatusServiceUnavailable, `{"status":"unavailable"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			New(tt.ping, nil).RegisterRoutes(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if got := rec.Body.String(); got != tt.body+"\n" {
				t.Fatalf("unexpected body %q", got)
			}
		})
	}
}
