package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-journey/backend/internal/auth"
	"github.com/zhouzirui/interview-journey/backend/internal/handler/health"
	"github.com/zhouzirui/interview-journey/backend/internal/handler/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/handler/orchestrator"
	"github.com/zhouzirui/interview-journey/backend/internal/handler/scenario"
	middlewarePkg "github.com/zhouzirui/interview-journey/backend/internal/middleware"
	scenarioModel "github.com/zhouzirui/interview-journey/backend/internal/model/scenario"
)

// Deps holds everything the router needs.
type Deps struct {
	Journey        journey.Service
	Orchestrator   orchestrator.Service
	Scenarios      scenarioModel.Store
	Store          health.Pinger
	Auth           auth.Provider
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	health.New(deps.Store, logger).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.Authenticate(deps.Auth, logger))

		scenario.New(deps.Scenarios).RegisterRoutes(api)
		journey.New(deps.Journey, logger).RegisterRoutes(api)
		orchestrator.New(deps.Orchestrator).RegisterRoutes(api)
	})

	return r
}
