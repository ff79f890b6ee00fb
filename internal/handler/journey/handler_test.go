package journey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
	"github.com/zhouzirui/interview-journey/backend/internal/auth"
	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/model/scenario"
	journeysvc "github.com/zhouzirui/interview-journey/backend/internal/service/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/storage/memory"
	"github.com/zhouzirui/interview-journey/backend/pkg/utils"
)

// asUser stands in for the authentication middleware: the X-Test-User
// header becomes the caller's identity.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithUserID(r.Context(), r.Header.Get("X-Test-User"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func setupRouter() *chi.Mux {
	var (
		mu sync.Mutex
		n  int
	)
	svc := journeysvc.NewService(memory.New(), scenario.NewMemoryStore(scenario.Seed()), nil,
		journeysvc.WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)

	r := chi.NewRouter()
	r.Use(asUser)
	New(svc, nil).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func startSession(t *testing.T, r http.Handler, user string) journeysvc.StartResult {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/journey/sessions", user, map[string]string{"jobRole": "Backend Engineer"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res journeysvc.StartResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) utils.ErrorDetail {
	t.Helper()
	var body utils.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

var answers = []string{
	"What is the expected SLA?",
	"First cache reads, then partition writes; tradeoff is consistency vs latency",
	"Monitor error rates, roll out behind a feature flag, and alert on timeouts",
	"Add retries with a circuit breaker and degrade gracefully",
	"I'd validate load assumptions sooner",
}

func TestStartSessionReturnsOpeningPrompt(t *testing.T) {
	r := setupRouter()
	res := startSession(t, r, "user-1")

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, journey.StateAwaitingClarification, res.State)
	assert.Equal(t, 0, res.StateIndex)
	assert.Equal(t, res.Scenario.Prompt, res.Prompt)
}

func TestStartSessionWithEmptyBodyUsesDefaults(t *testing.T) {
	r := setupRouter()
	rec := doJSON(t, r, http.MethodPost, "/journey/sessions", "user-1", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestStartSessionRejectsMalformedBody(t *testing.T) {
	r := setupRouter()
	rec := doJSON(t, r, http.MethodPost, "/journey/sessions", "user-1", `{"jobRole":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.InvalidInput, decodeError(t, rec).Kind)
}

func TestStartSessionWithoutIdentity(t *testing.T) {
	r := setupRouter()
	rec := doJSON(t, r, http.MethodPost, "/journey/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStepThroughToCompletion(t *testing.T) {
	r := setupRouter()
	start := startSession(t, r, "user-1")
	path := "/journey/sessions/" + start.SessionID + "/steps"

	var last journeysvc.StepResult
	for _, answer := range answers {
		rec := doJSON(t, r, http.MethodPost, path, "user-1", map[string]string{"message": answer})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	}
	assert.True(t, last.Done)
	assert.Equal(t, journey.StateComplete, last.State)
	assert.Equal(t, 5, last.StateIndex)
	require.NotNil(t, last.Metrics)

	rec := doJSON(t, r, http.MethodPost, path, "user-1", map[string]string{"message": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, apperr.InvalidState, detail.Kind)
	assert.False(t, detail.Retryable)

	rec = doJSON(t, r, http.MethodGet, "/journey/sessions/"+start.SessionID, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view journeysvc.SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.Turns, 11)
	require.NotNil(t, view.Metrics)
	assert.Equal(t, *last.Metrics, view.Metrics.Scores)
}

func TestStepErrors(t *testing.T) {
	r := setupRouter()
	start := startSession(t, r, "owner")

	tests := []struct {
		name   string
		user   string
		path   string
		body   any
		status int
		kind   apperr.Kind
	}{
		{"empty message", "owner", "/journey/sessions/" + start.SessionID + "/steps", map[string]string{"message": "   "}, http.StatusBadRequest, apperr.InvalidInput},
		{"malformed body", "owner", "/journey/sessions/" + start.SessionID + "/steps", `not json`, http.StatusBadRequest, apperr.InvalidInput},
		{"unknown session", "owner", "/journey/sessions/missing/steps", map[string]string{"message": "hi"}, http.StatusNotFound, apperr.NotFound},
		{"not the owner", "intruder", "/journey/sessions/" + start.SessionID + "/steps", map[string]string{"message": "hi"}, http.StatusForbidden, apperr.Forbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.kind, decodeError(t, rec).Kind)
		})
	}
}

func dialSession(t *testing.T, srv *httptest.Server, sessionID, user string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/journey/sessions/" + sessionID + "/ws"
	header := http.Header{}
	header.Set("X-Test-User", user)
	return websocket.DefaultDialer.Dial(url, header)
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWebSocketDrivesSessionAndCloses(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := setupRouter()
	srv := httptest.NewServer(r)
	defer srv.Close()

	start := startSession(t, r, "user-1")
	conn, _, err := dialSession(t, srv, start.SessionID, "user-1")
	require.NoError(t, err)
	defer conn.Close()

	hello := readFrame(t, conn)
	assert.Equal(t, frameConnected, hello["type"])
	data := hello["data"].(map[string]any)
	assert.Equal(t, string(journey.StateAwaitingClarification), data["state"])
	assert.Equal(t, start.Prompt, data["prompt"])

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "  "}))
	errFrame := readFrame(t, conn)
	assert.Equal(t, frameError, errFrame["type"])
	assert.Equal(t, string(apperr.InvalidInput), errFrame["data"].(map[string]any)["kind"])

	var last map[string]any
	for _, answer := range answers {
		require.NoError(t, conn.WriteJSON(map[string]string{"message": answer}))
		last = readFrame(t, conn)
		assert.Equal(t, frameStep, last["type"])
	}
	step := last["data"].(map[string]any)
	assert.Equal(t, true, step["done"])
	assert.NotNil(t, step["metrics"])

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected normal close, got %v", err)
}

func TestWebSocketRejectsForeignSessionBeforeUpgrade(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := setupRouter()
	srv := httptest.NewServer(r)
	defer srv.Close()

	start := startSession(t, r, "owner")
	conn, resp, err := dialSession(t, srv, start.SessionID, "intruder")
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}
