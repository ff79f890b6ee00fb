// Package storagetest holds behavioural tests every storage.Repository
// implementation must pass.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/model/orchestrator"
	"github.com/zhouzirui/interview-journey/backend/internal/storage"
)

// Factory returns a fresh, empty repository for one subtest.
type Factory func(t *testing.T) storage.Repository

var baseTime = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

// Run exercises newRepo against the repository contract.
func Run(t *testing.T, newRepo Factory) {
	t.Run("create and resume session", func(t *testing.T) { testCreateAndResume(t, newRepo(t)) })
	t.Run("owner scoping", func(t *testing.T) { testOwnerScoping(t, newRepo(t)) })
	t.Run("commit step appends in order", func(t *testing.T) { testCommitStep(t, newRepo(t)) })
	t.Run("stale version conflicts", func(t *testing.T) { testStaleVersion(t, newRepo(t)) })
	t.Run("concurrent commits admit one", func(t *testing.T) { testConcurrentCommits(t, newRepo(t)) })
	t.Run("metrics recorded once", func(t *testing.T) { testMetricsOnce(t, newRepo(t)) })
	t.Run("latest score follows recording order", func(t *testing.T) { testLatestScore(t, newRepo(t)) })
	t.Run("onboarding is idempotent", func(t *testing.T) { testOnboarding(t, newRepo(t)) })
	t.Run("decisions and progress", func(t *testing.T) { testDecisions(t, newRepo(t)) })
}

// NewSession builds a session in its initial state for userID.
func NewSession(id, userID string) journey.Session {
	return journey.Session{
		ID:              id,
		UserID:          userID,
		JobRole:         journey.DefaultJobRole,
		TechStack:       journey.DefaultTechStack,
		ExperienceLevel: journey.DefaultExperienceLevel,
		Mode:            journey.DefaultMode,
		State:           journey.StateAwaitingClarification,
		Context:         journey.ScenarioContext{ScenarioID: "url-shortener", ScenarioTitle: "Design a URL Shortener"},
		CreatedAt:       baseTime,
		LastStepAt:      baseTime,
	}
}

func openingTurn(session journey.Session) journey.Turn {
	return journey.Turn{
		ID:        session.ID + "-t0",
		SessionID: session.ID,
		UserID:    session.UserID,
		Role:      journey.RoleAssistant,
		State:     session.State,
		Content:   "opening prompt",
		Metadata:  map[string]string{"scenario_id": session.Context.ScenarioID},
		CreatedAt: baseTime,
	}
}

func stepCommit(prev journey.Session, next journey.State, n int, metrics *journey.Metrics) storage.StepCommit {
	session := prev
	session.State = next
	session.Version = prev.Version + 1
	session.LastStepAt = baseTime.Add(time.Duration(n) * time.Minute)
	tag := session.ID + "-s" + string(rune('a'+n))
	return storage.StepCommit{
		Session:         session,
		ExpectedVersion: prev.Version,
		UserTurn: journey.Turn{
			ID: tag + "-u", SessionID: session.ID, UserID: session.UserID,
			Role: journey.RoleUser, State: prev.State, Content: "answer", CreatedAt: session.LastStepAt,
		},
		AssistantTurn: journey.Turn{
			ID: tag + "-a", SessionID: session.ID, UserID: session.UserID,
			Role: journey.RoleAssistant, State: next, Content: "prompt", CreatedAt: session.LastStepAt,
		},
		Metrics: metrics,
	}
}

func testCreateAndResume(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	session := NewSession("sess-1", "user-1")
	require.NoError(t, repo.CreateSession(ctx, session, openingTurn(session)))

	got, err := repo.GetSession(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session.State, got.State)
	assert.Equal(t, session.Context, got.Context)
	assert.True(t, got.CreatedAt.Equal(baseTime))
	assert.Nil(t, got.CompletedAt)

	turns, err := repo.ListTurns(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, 0, turns[0].Seq)
	assert.Equal(t, "url-shortener", turns[0].Metadata["scenario_id"])

	err = repo.CreateSession(ctx, session, openingTurn(session))
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = repo.GetSession(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testOwnerScoping(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	session := NewSession("sess-1", "user-1")
	require.NoError(t, repo.CreateSession(ctx, session, openingTurn(session)))

	_, err := repo.GetSession(ctx, "user-2", "sess-1")
	assert.ErrorIs(t, err, storage.ErrForbidden)
	_, err = repo.ListTurns(ctx, "user-2", "sess-1")
	assert.ErrorIs(t, err, storage.ErrForbidden)
	_, err = repo.GetMetrics(ctx, "user-2", "sess-1")
	assert.ErrorIs(t, err, storage.ErrForbidden)

	foreign := stepCommit(session, journey.StateCoreAnswer, 1, nil)
	foreign.Session.UserID = "user-2"
	assert.ErrorIs(t, repo.CommitStep(ctx, foreign), storage.ErrForbidden)
}

func testCommitStep(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	session := NewSession("sess-1", "user-1")
	require.NoError(t, repo.CreateSession(ctx, session, openingTurn(session)))

	first := stepCommit(session, journey.StateCoreAnswer, 1, nil)
	asked := true
	first.Session.Context.ClarificationAsked = &asked
	require.NoError(t, repo.CommitStep(ctx, first))

	second := stepCommit(first.Session, journey.StateFollowUp, 2, nil)
	core := "first, cache the hot keys"
	second.Session.Context.CoreAnswer = &core
	require.NoError(t, repo.CommitStep(ctx, second))

	got, err := repo.GetSession(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, journey.StateFollowUp, got.State)
	assert.Equal(t, int64(2), got.Version)
	require.NotNil(t, got.Context.ClarificationAsked)
	assert.True(t, *got.Context.ClarificationAsked)
	require.NotNil(t, got.Context.CoreAnswer)
	assert.Equal(t, core, *got.Context.CoreAnswer)

	turns, err := repo.ListTurns(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 5)
	for i, turn := range turns {
		assert.Equal(t, i, turn.Seq)
	}
	assert.Equal(t, journey.RoleUser, turns[1].Role)
	assert.Equal(t, journey.RoleAssistant, turns[2].Role)
	assert.Equal(t, journey.StateFollowUp, turns[4].State)
}

func testStaleVersion(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	session := NewSession("sess-1", "user-1")
	require.NoError(t, repo.CreateSession(ctx, session, openingTurn(session)))

	commit := stepCommit(session, journey.StateCoreAnswer, 1, nil)
	require.NoError(t, repo.CommitStep(ctx, commit))

	stale := stepCommit(session, journey.StateCoreAnswer, 2, nil)
	assert.ErrorIs(t, repo.CommitStep(ctx, stale), storage.ErrConflict)

	turns, err := repo.ListTurns(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	assert.Len(t, turns, 3, "rejected commit must not append turns")
}

func testConcurrentCommits(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	session := NewSession("sess-1", "user-1")
	require.NoError(t, repo.CreateSession(ctx, session, openingTurn(session)))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := repo.CommitStep(ctx, stepCommit(session, journey.StateCoreAnswer, n+1, nil))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, storage.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected commit error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, conflicts)

	turns, err := repo.ListTurns(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	assert.Len(t, turns, 3)
}

func testMetricsOnce(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	session := NewSession("sess-1", "user-1")
	session.State = journey.StateReflection
	require.NoError(t, repo.CreateSession(ctx, session, openingTurn(session)))

	_, err := repo.GetMetrics(ctx, "user-1", "sess-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	metrics := &journey.Metrics{
		ID: "m-1", SessionID: "sess-1", UserID: "user-1",
		Scores:    journey.Scores{Structure: 50, ScalabilityThinking: 50, Adaptability: 33, OverallScore: 22},
		CreatedAt: baseTime,
	}
	complete := stepCommit(session, journey.StateComplete, 1, metrics)
	completedAt := baseTime.Add(time.Minute)
	complete.Session.CompletedAt = &completedAt
	require.NoError(t, repo.CommitStep(ctx, complete))

	got, err := repo.GetMetrics(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, metrics.Scores, got.Scores)

	again := stepCommit(complete.Session, journey.StateComplete, 2, &journey.Metrics{
		ID: "m-2", SessionID: "sess-1", UserID: "user-1", CreatedAt: baseTime,
	})
	assert.ErrorIs(t, repo.CommitStep(ctx, again), storage.ErrConflict)

	resumed, err := repo.GetSession(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	require.NotNil(t, resumed.CompletedAt)
	assert.True(t, resumed.CompletedAt.Equal(completedAt))
	assert.Equal(t, int64(1), resumed.Version)
}

func testLatestScore(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	_, ok, err := repo.LatestScore(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	for i, overall := range []int{40, 75} {
		id := []string{"sess-a", "sess-b"}[i]
		session := NewSession(id, "user-1")
		session.State = journey.StateReflection
		require.NoError(t, repo.CreateSession(ctx, session, openingTurn(session)))
		metrics := &journey.Metrics{
			ID: id + "-m", SessionID: id, UserID: "user-1",
			Scores: journey.Scores{OverallScore: overall}, CreatedAt: baseTime,
		}
		require.NoError(t, repo.CommitStep(ctx, stepCommit(session, journey.StateComplete, i+1, metrics)))
	}

	latest, ok, err := repo.LatestScore(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sess-b", latest.SessionID)
	assert.Equal(t, 75.0, latest.RawOverall)

	_, ok, err = repo.LatestScore(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testOnboarding(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	done, err := repo.OnboardingCompleted(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, repo.CompleteOnboarding(ctx, "user-1", baseTime))
	require.NoError(t, repo.CompleteOnboarding(ctx, "user-1", baseTime.Add(time.Hour)))

	done, err = repo.OnboardingCompleted(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, done)

	done, err = repo.OnboardingCompleted(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, done)
}

func testDecisions(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	_, ok, err := repo.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	score := 45.0
	sessionID := "sess-9"
	modules := []orchestrator.Module{
		orchestrator.ModuleOnboarding,
		orchestrator.ModuleInterviewJourney,
		orchestrator.ModuleProductionInterview,
	}
	for i, module := range modules {
		decision := orchestrator.Decision{
			ID:         "dec-" + string(module),
			UserID:     "user-1",
			Input:      orchestrator.InputSnapshot{OnboardingCompleted: i > 0, LatestOverallScore: &score, LatestSessionID: &sessionID},
			NextModule: module,
			Depth:      1,
			Reason:     "reason " + string(module),
			CreatedAt:  baseTime.Add(time.Duration(i) * time.Minute),
		}
		snapshot := orchestrator.ProgressSnapshot{
			UserID:              "user-1",
			OnboardingCompleted: i > 0,
			LastModule:          module,
			LastSeenAt:          decision.CreatedAt,
			LastSessionID:       &sessionID,
			LastOverallScore:    &score,
		}
		require.NoError(t, repo.RecordDecision(ctx, decision, snapshot))
	}

	all, err := repo.ListDecisions(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, orchestrator.ModuleProductionInterview, all[0].NextModule)
	assert.Equal(t, orchestrator.ModuleOnboarding, all[2].NextModule)
	require.NotNil(t, all[0].Input.LatestOverallScore)
	assert.Equal(t, 45.0, *all[0].Input.LatestOverallScore)

	limited, err := repo.ListDecisions(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	other, err := repo.ListDecisions(ctx, "user-2", 8)
	require.NoError(t, err)
	assert.Empty(t, other)

	snap, ok, err := repo.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, orchestrator.ModuleProductionInterview, snap.LastModule)
	assert.True(t, snap.OnboardingCompleted)
	require.NotNil(t, snap.LastOverallScore)
	assert.Equal(t, 45.0, *snap.LastOverallScore)
	assert.True(t, snap.LastSeenAt.Equal(baseTime.Add(2*time.Minute)))

	mismatched := orchestrator.ProgressSnapshot{UserID: "user-2"}
	assert.Error(t, repo.RecordDecision(ctx, orchestrator.Decision{ID: "dec-x", UserID: "user-1"}, mismatched))
}
