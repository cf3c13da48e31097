package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeflow-ai/codeflow/agent"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	steps := []agent.Step{
		{RunID: "run-1", Index: 1, Code: "return 1 + 1", Value: "2", Duration: 12 * time.Millisecond, CreatedAt: time.Now()},
		{RunID: "run-1", Index: 2, Code: `final_answer("2")`, Observation: "final answer", CreatedAt: time.Now()},
		{RunID: "run-2", Index: 1, Error: "interpreter error (timeout): budget elapsed", CreatedAt: time.Now()},
	}
	for i := range steps {
		require.NoError(t, store.SaveStep(ctx, &steps[i]))
	}

	got, err := store.ListSteps(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, "return 1 + 1", got[0].Code)
	assert.Equal(t, "2", got[0].Value)
	assert.Equal(t, 12*time.Millisecond, got[0].Duration)
	assert.Equal(t, 2, got[1].Index)

	other, err := store.ListSteps(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Contains(t, other[0].Error, "timeout")
}

func TestStore_ListUnknownRun(t *testing.T) {
	store := newTestStore(t)

	got, err := store.ListSteps(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
