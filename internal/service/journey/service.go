// Package journey runs interview sessions through the fixed state machine and
// records their transcripts and scores.
package journey

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-journey/backend/internal/analysis/metrics"
	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/model/scenario"
	"github.com/zhouzirui/interview-journey/backend/internal/storage"
)

// Metadata keys set on the opening assistant turn.
const (
	MetaScenarioID    = "scenario_id"
	MetaScenarioTitle = "scenario_title"
)

// StartRequest carries the caller's optional session parameters. Blank
// fields fall back to the journey defaults.
type StartRequest struct {
	JobRole         string `json:"jobRole"`
	TechStack       string `json:"techStack"`
	ExperienceLevel string `json:"experienceLevel"`
	Mode            string `json:"mode"`
}

// StartResult is returned when a session is created.
type StartResult struct {
	SessionID  string            `json:"sessionId"`
	State      journey.State     `json:"state"`
	StateIndex int               `json:"stateIndex"`
	Prompt     string            `json:"prompt"`
	Scenario   scenario.Scenario `json:"scenario"`
}

// StepResult is returned for every accepted step.
type StepResult struct {
	SessionID  string          `json:"sessionId"`
	State      journey.State   `json:"state"`
	StateIndex int             `json:"stateIndex"`
	Prompt     string          `json:"prompt"`
	Done       bool            `json:"done"`
	Metrics    *journey.Scores `json:"metrics"`
}

// SessionView is a saved session with its transcript, for resuming.
type SessionView struct {
	Session journey.Session  `json:"session"`
	Turns   []journey.Turn   `json:"turns"`
	Metrics *journey.Metrics `json:"metrics"`
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// Service coordinates the state machine with persistence.
type Service struct {
	store     storage.SessionStore
	scenarios scenario.Store
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// NewService wires a Service. A nil logger disables logging.
func NewService(store storage.SessionStore, scenarios scenario.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:     store,
		scenarios: scenarios,
		logger:    logger,
		tracer:    otel.Tracer("interview-journey/journey"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession creates a session for userID and records the scenario's
// opening prompt as the first assistant turn.
func (s *Service) StartSession(ctx context.Context, userID string, req StartRequest) (_ StartResult, err error) {
	ctx, span := s.tracer.Start(ctx, "journey.StartSession", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(userID) == "" {
		return StartResult{}, apperr.New(apperr.Unauthorized, "authentication required")
	}

	jobRole := orDefault(req.JobRole, journey.DefaultJobRole)
	picked := s.scenarios.Select(userID, jobRole)
	now := s.now()

	session := journey.Session{
		ID:              s.newID(),
		UserID:          userID,
		JobRole:         jobRole,
		TechStack:       orDefault(req.TechStack, journey.DefaultTechStack),
		ExperienceLevel: orDefault(req.ExperienceLevel, journey.DefaultExperienceLevel),
		Mode:            orDefault(req.Mode, journey.DefaultMode),
		State:           journey.StateAwaitingClarification,
		Context: journey.ScenarioContext{
			ScenarioID:    picked.ID,
			ScenarioTitle: picked.Title,
		},
		CreatedAt:  now,
		LastStepAt: now,
	}
	opening := journey.Turn{
		ID:        s.newID(),
		SessionID: session.ID,
		UserID:    userID,
		Role:      journey.RoleAssistant,
		State:     session.State,
		Content:   picked.Prompt,
		Metadata: map[string]string{
			MetaScenarioID:    picked.ID,
			MetaScenarioTitle: picked.Title,
		},
		CreatedAt: now,
	}

	if err := s.store.CreateSession(ctx, session, opening); err != nil {
		s.logger.Error("create session failed", zap.String("user_id", userID), zap.Error(err))
		return StartResult{}, translateStoreError(err, "could not create session")
	}

	span.SetAttributes(attribute.String("session.id", session.ID), attribute.String("scenario.id", picked.ID))
	s.logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID),
		zap.String("scenario_id", picked.ID),
	)

	return StartResult{
		SessionID:  session.ID,
		State:      session.State,
		StateIndex: session.State.Index(),
		Prompt:     picked.Prompt,
		Scenario:   picked,
	}, nil
}

// StepSession feeds one user message to the session's state machine. When the
// step completes the session, metrics are computed and stored in the same
// commit.
func (s *Service) StepSession(ctx context.Context, userID, sessionID, message string) (_ StepResult, err error) {
	ctx, span := s.tracer.Start(ctx, "journey.StepSession", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("session.id", sessionID),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(userID) == "" {
		return StepResult{}, apperr.New(apperr.Unauthorized, "authentication required")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return StepResult{}, apperr.New(apperr.InvalidInput, "session id is required")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return StepResult{}, apperr.New(apperr.InvalidInput, "message is required")
	}

	current, err := s.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return StepResult{}, translateStoreError(err, "could not load session")
	}
	if current.State.Terminal() {
		return StepResult{}, apperr.New(apperr.InvalidState, "session is already complete")
	}

	transition, ok := Advance(current.State, message, current.Context)
	if !ok {
		return StepResult{}, apperr.New(apperr.InvalidState, "session is in an unknown state")
	}

	now := s.now()
	next := current
	next.State = transition.Next
	next.Context = transition.Context
	next.Version = current.Version + 1
	next.LastStepAt = now

	commit := storage.StepCommit{
		Session:         next,
		ExpectedVersion: current.Version,
		UserTurn: journey.Turn{
			ID:        s.newID(),
			SessionID: sessionID,
			UserID:    userID,
			Role:      journey.RoleUser,
			State:     current.State,
			Content:   message,
			CreatedAt: now,
		},
		AssistantTurn: journey.Turn{
			ID:        s.newID(),
			SessionID: sessionID,
			UserID:    userID,
			Role:      journey.RoleAssistant,
			State:     transition.Next,
			Content:   transition.Prompt,
			CreatedAt: now,
		},
	}

	var scores *journey.Scores
	if transition.Done {
		completedAt := now
		commit.Session.CompletedAt = &completedAt
		computed := metrics.Compute(transition.Context.Normalized())
		scores = &computed
		commit.Metrics = &journey.Metrics{
			ID:        s.newID(),
			SessionID: sessionID,
			UserID:    userID,
			Scores:    computed,
			CreatedAt: now,
		}
	}

	if err := s.store.CommitStep(ctx, commit); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			s.logger.Warn("step conflicted with a concurrent update", zap.String("session_id", sessionID))
		} else {
			s.logger.Error("commit step failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return StepResult{}, translateStoreError(err, "could not save step")
	}

	s.logger.Info("session advanced",
		zap.String("session_id", sessionID),
		zap.String("from", string(current.State)),
		zap.String("to", string(transition.Next)),
	)
	if scores != nil {
		span.SetAttributes(attribute.Int("metrics.overall", scores.OverallScore))
		s.logger.Info("session completed",
			zap.String("session_id", sessionID),
			zap.Int("overall_score", scores.OverallScore),
		)
	}

	return StepResult{
		SessionID:  sessionID,
		State:      transition.Next,
		StateIndex: transition.Next.Index(),
		Prompt:     transition.Prompt,
		Done:       transition.Done,
		Metrics:    scores,
	}, nil
}

// GetSession returns a saved session with its transcript and, once complete,
// its metrics.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (SessionView, error) {
	if strings.TrimSpace(userID) == "" {
		return SessionView{}, apperr.New(apperr.Unauthorized, "authentication required")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return SessionView{}, apperr.New(apperr.InvalidInput, "session id is required")
	}

	session, err := s.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return SessionView{}, translateStoreError(err, "could not load session")
	}
	turns, err := s.store.ListTurns(ctx, userID, sessionID)
	if err != nil {
		return SessionView{}, translateStoreError(err, "could not load transcript")
	}

	view := SessionView{Session: session, Turns: turns}
	if session.Completed() {
		m, err := s.store.GetMetrics(ctx, userID, sessionID)
		if err != nil {
			return SessionView{}, translateStoreError(err, "could not load metrics")
		}
		view.Metrics = &m
	}
	return view, nil
}

func translateStoreError(err error, message string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, "session not found", err)
	case errors.Is(err, storage.ErrForbidden):
		return apperr.Wrap(apperr.Forbidden, "session belongs to another user", err)
	case errors.Is(err, storage.ErrConflict):
		return apperr.Wrap(apperr.ConflictingUpdate, "session was updated concurrently; retry", err)
	default:
		return apperr.Wrap(apperr.DependencyFailure, message, err)
	}
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	}
	span.End()
}
