package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/interview-journey/backend/internal/model/journey"
	"github.com/zhouzirui/interview-journey/backend/internal/storage"
	"github.com/zhouzirui/interview-journey/backend/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository { return New() })
}

func TestGetSessionReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()
	session := storagetest.NewSession("sess-1", "user-1")
	require.NoError(t, store.CreateSession(ctx, session, session0Turn(session.ID)))

	got, err := store.GetSession(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	answer := "mutated"
	got.Context.CoreAnswer = &answer

	again, err := store.GetSession(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	assert.Nil(t, again.Context.CoreAnswer)
}

func TestTurnMetadataIsCopied(t *testing.T) {
	store := New()
	ctx := context.Background()
	session := storagetest.NewSession("sess-1", "user-1")
	opening := session0Turn(session.ID)
	opening.Metadata = map[string]string{"scenario_id": "cache_invalidation"}
	require.NoError(t, store.CreateSession(ctx, session, opening))

	opening.Metadata["scenario_id"] = "changed by caller"
	turns, err := store.ListTurns(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	turns[0].Metadata["scenario_id"] = "changed by reader"

	again, err := store.ListTurns(ctx, "user-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "cache_invalidation", again[0].Metadata["scenario_id"])
}

func TestCanceledContextIsRejected(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetSession(ctx, "user-1", "sess-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)
}

func session0Turn(sessionID string) journey.Turn {
	return journey.Turn{ID: sessionID + "-t0", SessionID: sessionID, UserID: "user-1", Role: journey.RoleAssistant}
}
