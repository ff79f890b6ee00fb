// Package orchestrator recommends the next learning module for a user and
// keeps an audit trail of every recommendation.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
	"github.com/zhouzirui/interview-journey/backend/internal/model/orchestrator"
	"github.com/zhouzirui/interview-journey/backend/internal/storage"
)

// Decision log page sizes.
const (
	DefaultDecisionLimit = 8
	MaxDecisionLimit     = 50
)

// Store is the persistence the orchestrator needs.
type Store interface {
	storage.MetricsStore
	storage.OnboardingStore
	storage.DecisionStore
}

// Recommendation is what callers receive for GetNextRecommendation.
type Recommendation struct {
	NextModule  orchestrator.Module `json:"nextModule"`
	Depth       int                 `json:"depth"`
	Reason      string              `json:"reason"`
	Description string              `json:"description"`
	Label       string              `json:"label"`
	Route       string              `json:"route"`
}

// OnboardingStatus reports whether a user finished onboarding.
type OnboardingStatus struct {
	Completed bool `json:"completed"`
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides decision id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// Service evaluates and records recommendations.
type Service struct {
	store  Store
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

// NewService wires a Service. A nil logger disables logging.
func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("interview-journey/orchestrator"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetNextRecommendation decides the user's next module from their onboarding
// status and latest score. The decision and progress snapshot are written
// before the recommendation is returned; if either write fails, no
// recommendation is returned.
func (s *Service) GetNextRecommendation(ctx context.Context, userID string) (_ Recommendation, err error) {
	ctx, span := s.tracer.Start(ctx, "orchestrator.GetNextRecommendation",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		}
		span.End()
	}()

	if strings.TrimSpace(userID) == "" {
		return Recommendation{}, apperr.New(apperr.Unauthorized, "authentication required")
	}

	onboarded, err := s.store.OnboardingCompleted(ctx, userID)
	if err != nil {
		s.logger.Error("read onboarding status failed", zap.String("user_id", userID), zap.Error(err))
		return Recommendation{}, apperr.Wrap(apperr.DependencyFailure, "could not read onboarding status", err)
	}
	latest, hasScore, err := s.store.LatestScore(ctx, userID)
	if err != nil {
		s.logger.Error("read latest metrics failed", zap.String("user_id", userID), zap.Error(err))
		return Recommendation{}, apperr.Wrap(apperr.DependencyFailure, "could not read latest metrics", err)
	}

	input := orchestrator.InputSnapshot{OnboardingCompleted: onboarded}
	if hasScore {
		score := NormalizeScore(latest.RawOverall)
		sessionID := latest.SessionID
		input.LatestOverallScore = &score
		input.LatestSessionID = &sessionID
	}

	outcome := Decide(input.OnboardingCompleted, input.LatestOverallScore)
	now := s.now()
	decision := orchestrator.Decision{
		ID:         s.newID(),
		UserID:     userID,
		Input:      input,
		NextModule: outcome.Module,
		Depth:      outcome.Depth,
		Reason:     outcome.Reason,
		CreatedAt:  now,
	}
	snapshot := orchestrator.ProgressSnapshot{
		UserID:              userID,
		OnboardingCompleted: onboarded,
		LastModule:          outcome.Module,
		LastSeenAt:          now,
		LastSessionID:       input.LatestSessionID,
		LastOverallScore:    input.LatestOverallScore,
	}

	if err := s.store.RecordDecision(ctx, decision, snapshot); err != nil {
		s.logger.Error("record decision failed", zap.String("user_id", userID), zap.Error(err))
		return Recommendation{}, apperr.Wrap(apperr.DependencyFailure, "could not record decision", err)
	}

	span.SetAttributes(attribute.String("decision.module", string(outcome.Module)), attribute.Int("decision.depth", outcome.Depth))
	s.logger.Info("decision recorded",
		zap.String("user_id", userID),
		zap.String("module", string(outcome.Module)),
		zap.Int("depth", outcome.Depth),
	)

	info := outcome.Module.Info()
	return Recommendation{
		NextModule:  outcome.Module,
		Depth:       outcome.Depth,
		Reason:      outcome.Reason,
		Description: outcome.Description,
		Label:       info.Label,
		Route:       info.Route,
	}, nil
}

// ListDecisions returns the user's most recent decisions, newest first.
// limit <= 0 selects DefaultDecisionLimit; larger values are capped at
// MaxDecisionLimit.
func (s *Service) ListDecisions(ctx context.Context, userID string, limit int) ([]orchestrator.Decision, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.New(apperr.Unauthorized, "authentication required")
	}
	switch {
	case limit <= 0:
		limit = DefaultDecisionLimit
	case limit > MaxDecisionLimit:
		limit = MaxDecisionLimit
	}

	decisions, err := s.store.ListDecisions(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyFailure, "could not list decisions", err)
	}
	return decisions, nil
}

// GetProgress returns the user's progress snapshot. It fails with NotFound
// until the first recommendation has been recorded.
func (s *Service) GetProgress(ctx context.Context, userID string) (orchestrator.ProgressSnapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return orchestrator.ProgressSnapshot{}, apperr.New(apperr.Unauthorized, "authentication required")
	}
	snapshot, ok, err := s.store.GetProgress(ctx, userID)
	if err != nil {
		return orchestrator.ProgressSnapshot{}, apperr.Wrap(apperr.DependencyFailure, "could not read progress", err)
	}
	if !ok {
		return orchestrator.ProgressSnapshot{}, apperr.New(apperr.NotFound, "no progress recorded yet")
	}
	return snapshot, nil
}

// CompleteOnboarding marks onboarding done for userID. Repeated calls keep
// the first completion time.
func (s *Service) CompleteOnboarding(ctx context.Context, userID string) (OnboardingStatus, error) {
	if strings.TrimSpace(userID) == "" {
		return OnboardingStatus{}, apperr.New(apperr.Unauthorized, "authentication required")
	}
	if err := s.store.CompleteOnboarding(ctx, userID, s.now()); err != nil {
		s.logger.Error("complete onboarding failed", zap.String("user_id", userID), zap.Error(err))
		return OnboardingStatus{}, apperr.Wrap(apperr.DependencyFailure, "could not save onboarding", err)
	}
	s.logger.Info("onboarding completed", zap.String("user_id", userID))
	return OnboardingStatus{Completed: true}, nil
}

// GetOnboardingStatus reports whether userID finished onboarding.
func (s *Service) GetOnboardingStatus(ctx context.Context, userID string) (OnboardingStatus, error) {
	if strings.TrimSpace(userID) == "" {
		return OnboardingStatus{}, apperr.New(apperr.Unauthorized, "authentication required")
	}
	done, err := s.store.OnboardingCompleted(ctx, userID)
	if err != nil {
		return OnboardingStatus{}, apperr.Wrap(apperr.DependencyFailure, "could not read onboarding status", err)
	}
	return OnboardingStatus{Completed: done}, nil
}
