package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
)

func TestRespondErrorUsesKindStatus(t *testing.T) {
	tests := []struct {
		err       error
		status    int
		kind      apperr.Kind
		message   string
		retryable bool
	}{
		{apperr.New(apperr.InvalidState, "session is already complete"), http.StatusConflict, apperr.InvalidState, "session is already complete", false},
		{apperr.New(apperr.ConflictingUpdate, "retry"), http.StatusConflict, apperr.ConflictingUpdate, "retry", true},
		{apperr.New(apperr.Forbidden, "nope"), http.StatusForbidden, apperr.Forbidden, "nope", false},
		{errors.New("pq: connection reset"), http.StatusServiceUnavailable, apperr.DependencyFailure, "internal error", false},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		RespondError(rec, tt.err)

		if rec.Code != tt.status {
			t.Fatalf("status = %d, want %d", rec.Code, tt.status)
		}
		var body ErrorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Error.Kind != tt.kind || body.Error.Message != tt.message || body.Error.Retryable != tt.retryable {
			t.Fatalf("body = %+v", body.Error)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Message string `json:"message"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"hi"}`))
	if err := DecodeJSON(req, &dst); err != nil {
		t.Fatalf("DecodeJSON err: %v", err)
	}
	if dst.Message != "hi" {
		t.Fatalf("message = %q", dst.Message)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":`))
	if err := DecodeJSON(req, &dst); apperr.KindOf(err) != apperr.InvalidInput {
		t.Fatalf("malformed body err = %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	if err := DecodeJSON(req, &dst); err != nil {
		t.Fatalf("empty body err = %v", err)
	}
}
