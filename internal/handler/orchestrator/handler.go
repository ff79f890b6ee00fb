// Package orchestrator serves the learning-path recommendation endpoints.
package orchestrator

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
	"github.com/zhouzirui/interview-journey/backend/internal/auth"
	"github.com/zhouzirui/interview-journey/backend/internal/model/orchestrator"
	orchestratorsvc "github.com/zhouzirui/interview-journey/backend/internal/service/orchestrator"
	"github.com/zhouzirui/interview-journey/backend/pkg/utils"
)

// Service is the orchestrator behaviour the handler exposes.
type Service interface {
	GetNextRecommendation(ctx context.Context, userID string) (orchestratorsvc.Recommendation, error)
	ListDecisions(ctx context.Context, userID string, limit int) ([]orchestrator.Decision, error)
	GetProgress(ctx context.Context, userID string) (orchestrator.ProgressSnapshot, error)
	CompleteOnboarding(ctx context.Context, userID string) (orchestratorsvc.OnboardingStatus, error)
	GetOnboardingStatus(ctx context.Context, userID string) (orchestratorsvc.OnboardingStatus, error)
}

// Handler serves recommendation and onboarding routes.
type Handler struct {
	svc Service
}

// New creates an orchestrator handler.
func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the orchestrator and onboarding routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/orchestrator/next", h.handleNext)
	r.Get("/orchestrator/decisions", h.handleDecisions)
	r.Get("/orchestrator/state", h.handleState)
	r.Get("/onboarding", h.handleOnboardingStatus)
	r.Post("/onboarding/complete", h.handleCompleteOnboarding)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetNextRecommendation(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDecisions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	decisions, err := h.svc.ListDecisions(r.Context(), auth.UserIDFromContext(r.Context()), limit)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.GetProgress(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.GetOnboardingStatus(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.CompleteOnboarding(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, status)
}

// parseLimit reads the optional ?limit= value. Missing means the service
// default.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.New(apperr.InvalidInput, "limit must be a non-negative integer")
	}
	return n, nil
}
