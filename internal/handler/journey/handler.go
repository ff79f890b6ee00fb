package journey

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
	"github.com/zhouzirui/interview-journey/backend/internal/auth"
	journeysvc "github.com/zhouzirui/interview-journey/backend/internal/service/journey"
	"github.com/zhouzirui/interview-journey/backend/pkg/utils"
)

// Service is the interview flow the handler drives.
type Service interface {
	StartSession(ctx context.Context, userID string, req journeysvc.StartRequest) (journeysvc.StartResult, error)
	StepSession(ctx context.Context, userID, sessionID, message string) (journeysvc.StepResult, error)
	GetSession(ctx context.Context, userID, sessionID string) (journeysvc.SessionView, error)
}

// Handler serves the interview journey REST and WebSocket endpoints.
type Handler struct {
	svc      Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a journey handler. Origin checks for the WebSocket upgrade are
// left to the CORS layer and the bearer token.
func New(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the journey routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/journey/sessions", func(r chi.Router) {
		r.Post("/", h.handleStart)
		r.Get("/{sessionID}", h.handleGet)
		r.Post("/{sessionID}/steps", h.handleStep)
		r.Get("/{sessionID}/ws", h.handleWebSocket)
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req journeysvc.StartRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, err)
		return
	}

	res, err := h.svc.StartSession(r.Context(), auth.UserIDFromContext(r.Context()), req)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, res)
}

type stepRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, err)
		return
	}

	res, err := h.svc.StepSession(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "sessionID"), req.Message)
	if err != nil {
		if apperr.KindOf(err) == apperr.DependencyFailure {
			h.logger.Error("step failed", zap.Error(err))
		}
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetSession(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}
