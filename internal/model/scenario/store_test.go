package scenario

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedLoadsEmbeddedCatalog(t *testing.T) {
	items := Seed()
	require.Len(t, items, 3)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
		assert.NotEmpty(t, item.Title)
		assert.Contains(t, item.Prompt, "clarifying questions")
	}
	assert.Equal(t, []string{"cache_invalidation", "payment_webhook", "search_scale"}, ids)
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	_, err := Parse([]byte("scenarios: []"))
	assert.Error(t, err)

	_, err = Parse([]byte("scenarios:\n  - id: a\n    prompt: p\n  - id: a\n    prompt: q\n"))
	assert.ErrorContains(t, err, "declared twice")

	_, err = Parse([]byte("scenarios:\n  - id: a\n"))
	assert.ErrorContains(t, err, "id and prompt are required")
}

func TestSelectIsDeterministic(t *testing.T) {
	store := NewMemoryStore(Seed())

	first := store.Select("user-1", "Backend Engineer")
	second := store.Select("user-1", "Backend Engineer")
	assert.Equal(t, first.ID, second.ID)

	_, ok := store.FindByID(first.ID)
	assert.True(t, ok)
}

func TestSelectSpreadsUsersAcrossCatalog(t *testing.T) {
	store := NewMemoryStore(Seed())
	seen := map[string]int{}
	for i := 0; i < 300; i++ {
		seen[store.Select(fmt.Sprintf("user-%d", i), "Software Engineer").ID]++
	}
	require.Len(t, seen, 3)
	for id, count := range seen {
		assert.Greater(t, count, 50, id)
	}
}

func TestIndexStaysInRange(t *testing.T) {
	for _, seed := range []string{"", "a", "user:role", "ü:β"} {
		idx := Index(seed, 3)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 3)
	}
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	items := store.List()
	items[0].ID = "mutated"
	_, ok := store.FindByID("mutated")
	assert.False(t, ok)
}
