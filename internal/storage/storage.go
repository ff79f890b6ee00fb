// Package storage defines the persistence contracts the interview and
// orchestration services depend on. Every read and write is scoped to the
// calling user.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/model/orchestrator"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden indicates the record exists but belongs to another user.
	ErrForbidden = errors.New("record belongs to another user")
	// ErrConflict indicates a concurrent write changed the record first.
	ErrConflict = errors.New("conflicting concurrent update")
)

// StepCommit is everything one state-machine step writes. Stores apply it
// atomically: either every part lands or none does.
type StepCommit struct {
	// Session is the post-transition session. Its Version must be
	// ExpectedVersion+1.
	Session         journey.Session
	ExpectedVersion int64
	UserTurn        journey.Turn
	AssistantTurn   journey.Turn
	// Metrics is set only on the step that completes the session.
	Metrics *journey.Metrics
}

// SessionStore persists interview sessions and their transcripts.
type SessionStore interface {
	// CreateSession stores a new session together with its opening turn.
	CreateSession(ctx context.Context, session journey.Session, opening journey.Turn) error
	GetSession(ctx context.Context, userID, sessionID string) (journey.Session, error)
	// ListTurns returns the transcript in sequence order.
	ListTurns(ctx context.Context, userID, sessionID string) ([]journey.Turn, error)
	// CommitStep conditionally updates the session and appends the step's
	// turns and metrics. A version mismatch or a second metrics record for
	// the session yields ErrConflict.
	CommitStep(ctx context.Context, commit StepCommit) error
	GetMetrics(ctx context.Context, userID, sessionID string) (journey.Metrics, error)
}

// LatestScore is the overall score of a user's most recent metrics row, as
// stored. Older rows may hold a 0–1 fraction instead of a percentage.
type LatestScore struct {
	SessionID  string
	RawOverall float64
	RecordedAt time.Time
}

// MetricsStore reads scoring results across sessions.
type MetricsStore interface {
	// LatestScore returns the most recently recorded overall score for userID.
	LatestScore(ctx context.Context, userID string) (LatestScore, bool, error)
}

// OnboardingStore tracks onboarding completion.
type OnboardingStore interface {
	OnboardingCompleted(ctx context.Context, userID string) (bool, error)
	// CompleteOnboarding is idempotent; the first completion time is kept.
	CompleteOnboarding(ctx context.Context, userID string, at time.Time) error
}

// DecisionStore keeps the decision audit log and the progress snapshot.
type DecisionStore interface {
	// RecordDecision appends decision, then upserts snapshot, atomically.
	RecordDecision(ctx context.Context, decision orchestrator.Decision, snapshot orchestrator.ProgressSnapshot) error
	// ListDecisions returns up to limit decisions, newest first.
	ListDecisions(ctx context.Context, userID string, limit int) ([]orchestrator.Decision, error)
	GetProgress(ctx context.Context, userID string) (orchestrator.ProgressSnapshot, bool, error)
}

// Repository is the full persistence surface.
type Repository interface {
	SessionStore
	MetricsStore
	OnboardingStore
	DecisionStore
	Ping(ctx context.Context) error
	Close() error
}
