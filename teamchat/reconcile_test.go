package teamchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileDedupAndOrder(t *testing.T) {
	history := []ChatMessage{
		{ID: "m1", TeamID: "5", Text: "first", CreatedAt: 100},
		{ID: "m2", TeamID: "5", Text: "second", CreatedAt: 200},
	}
	// live stream delivered an echo of m2 and a new m3
	live := []ChatMessage{
		{ID: "m2", TeamID: "5", Text: "second", CreatedAt: 200},
		{ID: "m3", TeamID: "5", Text: "third", CreatedAt: 300},
	}

	got := Reconcile(history, live)

	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
	assert.Equal(t, "m3", got[2].ID)
}

func TestReconcileSortsByCreatedAt(t *testing.T) {
	history := []ChatMessage{
		{ID: "b", CreatedAt: 500},
	}
	live := []ChatMessage{
		{ID: "c", CreatedAt: 900},
		{ID: "a", CreatedAt: 100},
	}

	got := Reconcile(history, live)

	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].CreatedAt, got[i].CreatedAt)
	}
	assert.Equal(t, "a", got[0].ID)
}

func TestReconcileFirstOccurrenceWins(t *testing.T) {
	history := []ChatMessage{
		{ID: "m1", Text: "from history", CreatedAt: 100},
	}
	live := []ChatMessage{
		{ID: "m1", Text: "live echo with different text", CreatedAt: 100},
	}

	got := Reconcile(history, live)

	require.Len(t, got, 1)
	assert.Equal(t, "from history", got[0].Text)
}

func TestReconcileStableForEqualTimestamps(t *testing.T) {
	live := []ChatMessage{
		{ID: "x", CreatedAt: 100},
		{ID: "y", CreatedAt: 100},
		{ID: "z", CreatedAt: 100},
	}

	got := Reconcile(nil, live)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"x", "y", "z"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	history := []ChatMessage{
		{ID: "m2", CreatedAt: 200},
		{ID: "m1", CreatedAt: 100},
	}
	live := []ChatMessage{
		{ID: "m0", CreatedAt: 50},
	}

	_ = Reconcile(history, live)

	assert.Equal(t, "m2", history[0].ID, "history must not be reordered")
	assert.Equal(t, "m0", live[0].ID)
}

func TestReconcileEmptyInputs(t *testing.T) {
	assert.Empty(t, Reconcile(nil, nil))
	got := Reconcile(nil, []ChatMessage{{ID: "only", CreatedAt: 1}})
	require.Len(t, got, 1)
}
