package interp

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_SetGetDelete(t *testing.T) {
	st := NewState()

	_, ok := st.Get("missing")
	assert.False(t, ok)

	st.Set("x", 1)
	v, ok := st.Get("x")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, st.Len())

	st.Delete("x")
	_, ok = st.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 0, st.Len())
}

func TestState_MergeRightBiased(t *testing.T) {
	st := NewState()
	st.Set("a", 1)
	st.Set("b", 2)

	st.Merge(map[string]any{"b": 20, "c": 3})

	snap := st.Snapshot()
	assert.Equal(t, map[string]any{"a": 1, "b": 20, "c": 3}, snap)
}

func TestState_MergeNil(t *testing.T) {
	st := NewState()
	st.Set("a", 1)
	st.Merge(nil)
	assert.Equal(t, 1, st.Len())
}

func TestState_SnapshotIsCopy(t *testing.T) {
	st := NewState()
	st.Set("a", 1)

	snap := st.Snapshot()
	snap["a"] = 99
	snap["b"] = 2

	v, _ := st.Get("a")
	assert.Equal(t, 1, v)
	_, ok := st.Get("b")
	assert.False(t, ok)
}

func TestProperty_StateMerge(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("merge is right-biased and keeps untouched keys", prop.ForAll(
		func(base map[string]int, extra map[string]int) bool {
			st := NewState()
			for k, v := range base {
				st.Set(k, v)
			}
			patch := make(map[string]any, len(extra))
			for k, v := range extra {
				patch[k] = v
			}
			st.Merge(patch)

			snap := st.Snapshot()
			for k, v := range extra {
				if snap[k] != any(v) {
					return false
				}
			}
			for k, v := range base {
				if _, overridden := extra[k]; overridden {
					continue
				}
				if snap[k] != any(v) {
					return false
				}
			}
			return true
		},
		gen.MapOf(gen.AlphaString(), gen.Int()),
		gen.MapOf(gen.AlphaString(), gen.Int()),
	))

	properties.TestingRun(t)
}
