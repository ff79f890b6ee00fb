package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Kind      apperr.Kind `json:"kind"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
}

// RespondJSON writes payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError renders err with the status of its kind. Errors that are not
// application errors are reported as dependency failures without leaking
// their text.
func RespondError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	RespondJSON(w, kind.HTTPStatus(), ErrorBody{Error: ErrorDetail{
		Kind:      kind,
		Message:   apperr.MessageOf(err),
		Retryable: apperr.Retryable(err),
	}})
}

// DecodeJSON reads a JSON request body into dst. An empty body leaves dst
// untouched; malformed JSON is an InvalidInput error.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Wrap(apperr.InvalidInput, "invalid request body", err)
	}
	return nil
}
