// Package memory provides an in-process Repository suitable for tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/model/orchestrator"
	"github.com/zhouzirui/interview-journey/backend/internal/storage"
)

// Store keeps every record in maps guarded by one lock.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]journey.Session
	turns      map[string][]journey.Turn
	metrics    map[string]journey.Metrics // by session id
	metricSeq  []string                   // session ids in recording order
	onboarding map[string]time.Time
	decisions  map[string][]orchestrator.Decision
	progress   map[string]orchestrator.ProgressSnapshot
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		sessions:   make(map[string]journey.Session),
		turns:      make(map[string][]journey.Turn),
		metrics:    make(map[string]journey.Metrics),
		onboarding: make(map[string]time.Time),
		decisions:  make(map[string][]orchestrator.Decision),
		progress:   make(map[string]orchestrator.ProgressSnapshot),
	}
}

// CreateSession stores session and its opening turn.
func (s *Store) CreateSession(ctx context.Context, session journey.Session, opening journey.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return storage.ErrConflict
	}
	opening.Seq = 0
	s.sessions[session.ID] = cloneSession(session)
	s.turns[session.ID] = append(make([]journey.Turn, 0, 12), cloneTurn(opening))
	return nil
}

// GetSession returns the session if userID owns it.
func (s *Store) GetSession(ctx context.Context, userID, sessionID string) (journey.Session, error) {
	if err := ctx.Err(); err != nil {
		return journey.Session{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.ownedSession(userID, sessionID)
	if err != nil {
		return journey.Session{}, err
	}
	return cloneSession(session), nil
}

// ListTurns returns a copy of the transcript.
func (s *Store) ListTurns(ctx context.Context, userID, sessionID string) ([]journey.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.ownedSession(userID, sessionID); err != nil {
		return nil, err
	}
	turns := s.turns[sessionID]
	copied := make([]journey.Turn, len(turns))
	for i, turn := range turns {
		copied[i] = cloneTurn(turn)
	}
	return copied, nil
}

// CommitStep applies one step atomically under the store lock.
func (s *Store) CommitStep(ctx context.Context, commit storage.StepCommit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := commit.Session
	current, err := s.ownedSession(next.UserID, next.ID)
	if err != nil {
		return err
	}
	if current.Version != commit.ExpectedVersion || next.Version != commit.ExpectedVersion+1 {
		return storage.ErrConflict
	}
	if commit.Metrics != nil {
		if _, recorded := s.metrics[next.ID]; recorded {
			return storage.ErrConflict
		}
	}

	s.sessions[next.ID] = cloneSession(next)
	seq := len(s.turns[next.ID])
	userTurn, assistantTurn := commit.UserTurn, commit.AssistantTurn
	userTurn.Seq, assistantTurn.Seq = seq, seq+1
	s.turns[next.ID] = append(s.turns[next.ID], cloneTurn(userTurn), cloneTurn(assistantTurn))
	if commit.Metrics != nil {
		s.metrics[next.ID] = *commit.Metrics
		s.metricSeq = append(s.metricSeq, next.ID)
	}
	return nil
}

// GetMetrics returns the metrics of a completed session.
func (s *Store) GetMetrics(ctx context.Context, userID, sessionID string) (journey.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return journey.Metrics{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.ownedSession(userID, sessionID); err != nil {
		return journey.Metrics{}, err
	}
	m, ok := s.metrics[sessionID]
	if !ok {
		return journey.Metrics{}, storage.ErrNotFound
	}
	return m, nil
}

// LatestScore returns the overall score last recorded for userID.
func (s *Store) LatestScore(ctx context.Context, userID string) (storage.LatestScore, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.LatestScore{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.metricSeq) - 1; i >= 0; i-- {
		m := s.metrics[s.metricSeq[i]]
		if m.UserID == userID {
			return storage.LatestScore{
				SessionID:  m.SessionID,
				RawOverall: float64(m.OverallScore),
				RecordedAt: m.CreatedAt,
			}, true, nil
		}
	}
	return storage.LatestScore{}, false, nil
}

// OnboardingCompleted reports whether userID finished onboarding.
func (s *Store) OnboardingCompleted(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.onboarding[userID]
	return ok, nil
}

// CompleteOnboarding marks onboarding complete, keeping the first time.
func (s *Store) CompleteOnboarding(ctx context.Context, userID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.onboarding[userID]; !ok {
		s.onboarding[userID] = at.UTC()
	}
	return nil
}

// RecordDecision appends decision and upserts snapshot.
func (s *Store) RecordDecision(ctx context.Context, decision orchestrator.Decision, snapshot orchestrator.ProgressSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if decision.UserID == "" || decision.UserID != snapshot.UserID {
		return fmt.Errorf("decision and snapshot must share a user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[decision.UserID] = append(s.decisions[decision.UserID], decision)
	s.progress[snapshot.UserID] = snapshot
	return nil
}

// ListDecisions returns up to limit decisions, newest first.
func (s *Store) ListDecisions(ctx context.Context, userID string, limit int) ([]orchestrator.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.decisions[userID]
	out := make([]orchestrator.Decision, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetProgress returns the progress snapshot for userID.
func (s *Store) GetProgress(ctx context.Context, userID string) (orchestrator.ProgressSnapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return orchestrator.ProgressSnapshot{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.progress[userID]
	return snap, ok, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) ownedSession(userID, sessionID string) (journey.Session, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return journey.Session{}, storage.ErrNotFound
	}
	if session.UserID != userID {
		return journey.Session{}, storage.ErrForbidden
	}
	return session, nil
}

// cloneSession copies the pointer fields so callers cannot mutate stored state.
func cloneSession(s journey.Session) journey.Session {
	ctx := s.Context
	if ctx.ClarificationAsked != nil {
		v := *ctx.ClarificationAsked
		ctx.ClarificationAsked = &v
	}
	ctx.CoreAnswer = cloneString(ctx.CoreAnswer)
	ctx.FollowUp = cloneString(ctx.FollowUp)
	ctx.Curveball = cloneString(ctx.Curveball)
	s.Context = ctx
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		s.CompletedAt = &t
	}
	return s
}

func cloneTurn(t journey.Turn) journey.Turn {
	if t.Metadata != nil {
		meta := make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			meta[k] = v
		}
		t.Metadata = meta
	}
	return t
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ storage.Repository = (*Store)(nil)
