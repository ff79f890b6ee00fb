package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsChains(t *testing.T) {
	base := New(NotFound, "session not found")
	wrapped := fmt.Errorf("step: %w", base)

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.Equal(t, "session not found", MessageOf(wrapped))
	assert.True(t, errors.Is(wrapped, &Error{Kind: NotFound}))
	assert.False(t, errors.Is(wrapped, &Error{Kind: Forbidden}))
}

func TestKindOfPlainErrorIsDependencyFailure(t *testing.T) {
	err := errors.New("disk on fire")
	assert.Equal(t, DependencyFailure, KindOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestOnlyConflictingUpdateIsRetryable(t *testing.T) {
	kinds := []Kind{Unauthorized, Forbidden, InvalidInput, NotFound, InvalidState, DependencyFailure}
	for _, k := range kinds {
		assert.False(t, Retryable(New(k, "x")), k)
	}
	assert.True(t, Retryable(Wrap(ConflictingUpdate, "session changed", errors.New("version mismatch"))))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Unauthorized:      http.StatusUnauthorized,
		Forbidden:         http.StatusForbidden,
		InvalidInput:      http.StatusBadRequest,
		NotFound:          http.StatusNotFound,
		InvalidState:      http.StatusConflict,
		ConflictingUpdate: http.StatusConflict,
		DependencyFailure: http.StatusServiceUnavailable,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind)
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(DependencyFailure, "load session", errors.New("connection refused"))
	assert.Equal(t, "load session: connection refused", err.Error())
	assert.ErrorIs(t, err, err.Cause)
}
