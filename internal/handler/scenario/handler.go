package scenario

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
	"github.com/zhouzirui/interview-journey/backend/internal/model/scenario"
	"github.com/zhouzirui/interview-journey/backend/pkg/utils"
)

// Handler serves the read-only scenario catalog.
type Handler struct {
	scenarios scenario.Store
}

// New creates a scenario handler.
func New(scenarios scenario.Store) *Handler {
	return &Handler{scenarios: scenarios}
}

// RegisterRoutes mounts the catalog routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/scenarios", h.handleList)
	r.Get("/scenarios/{scenarioID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.scenarios.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, ok := h.scenarios.FindByID(chi.URLParam(r, "scenarioID"))
	if !ok {
		utils.RespondError(w, apperr.New(apperr.NotFound, "scenario not found"))
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}
