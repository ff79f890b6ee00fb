package journey

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
	"github.com/zhouzirui/interview-journey/backend/internal/auth"
	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
	"github.com/zhouzirui/interview-journey/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingPeriod   = (readTimeout * 9) / 10
	writeTimeout = 10 * time.Second
)

// Frame types sent to the client.
const (
	frameConnected = "connected"
	frameStep      = "step"
	frameError     = "error"
)

type inboundFrame struct {
	Message string `json:"message"`
}

type outgoingFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type connectedData struct {
	State      journey.State `json:"state"`
	StateIndex int           `json:"stateIndex"`
	Prompt     string        `json:"prompt"`
	Done       bool          `json:"done"`
}

// wsConn serializes writes: gorilla allows one concurrent writer, and the
// ping loop shares the connection with the step loop.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) writeControl(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(messageType, data, time.Now().Add(writeTimeout))
}

// handleWebSocket runs one StepSession per inbound {"message": ...} frame and
// closes the connection once the session completes.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	// Ownership and existence are checked before upgrading so failures get a
	// regular HTTP error response.
	view, err := h.svc.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		utils.RespondError(w, err)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	conn := &wsConn{conn: raw}
	defer raw.Close()

	ctx, cancel := context.WithCancel(r.Context())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	_ = raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(readTimeout))
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.pingLoop(ctx, conn)
	}()

	h.logger.Info("websocket connected", zap.String("session_id", sessionID))

	connected := connectedData{
		State:      view.Session.State,
		StateIndex: view.Session.State.Index(),
		Prompt:     lastPrompt(view.Turns),
		Done:       view.Session.Completed(),
	}
	if err := h.send(conn, frameConnected, sessionID, connected); err != nil {
		return
	}
	if connected.Done {
		h.closeNormally(conn, "session complete")
		return
	}

	for {
		var frame inboundFrame
		if err := raw.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("session_id", sessionID), zap.Error(err))
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(readTimeout))

		res, err := h.svc.StepSession(ctx, userID, sessionID, frame.Message)
		if err != nil {
			if apperr.KindOf(err) == apperr.DependencyFailure {
				h.logger.Error("websocket step failed", zap.String("session_id", sessionID), zap.Error(err))
			}
			if err := h.send(conn, frameError, sessionID, errorDetail(err)); err != nil {
				return
			}
			continue
		}

		if err := h.send(conn, frameStep, sessionID, res); err != nil {
			return
		}
		if res.Done {
			h.closeNormally(conn, "session complete")
			return
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.writeControl(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(conn *wsConn, frameType, sessionID string, data any) error {
	err := conn.writeJSON(outgoingFrame{
		Type:      frameType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		h.logger.Warn("websocket write failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	return err
}

func (h *Handler) closeNormally(conn *wsConn, reason string) {
	_ = conn.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
}

func errorDetail(err error) utils.ErrorDetail {
	return utils.ErrorDetail{
		Kind:      apperr.KindOf(err),
		Message:   apperr.MessageOf(err),
		Retryable: apperr.Retryable(err),
	}
}

func lastPrompt(turns []journey.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == journey.RoleAssistant {
			return turns[i].Content
		}
	}
	return ""
}
