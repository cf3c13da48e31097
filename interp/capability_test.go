package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewModuleAllowList_Base(t *testing.T) {
	l := NewModuleAllowList()
	assert.Equal(t, []string{"string", "table", "math", "json"}, l.Names())
	for _, name := range BaseAuthorizedImports {
		assert.True(t, l.Contains(name), name)
	}
	assert.False(t, l.Contains("os"))
	assert.False(t, l.Contains("io"))
	assert.False(t, l.Contains(""))
}

func TestNewModuleAllowList_Additional(t *testing.T) {
	tests := []struct {
		name       string
		additional []string
		want       []string
	}{
		{
			name:       "union keeps registration order",
			additional: []string{"coroutine"},
			want:       []string{"string", "table", "math", "json", "coroutine"},
		},
		{
			name:       "duplicates removed",
			additional: []string{"math", "coroutine", "coroutine"},
			want:       []string{"string", "table", "math", "json", "coroutine"},
		},
		{
			name:       "blank entries skipped",
			additional: []string{"", "  ", "coroutine"},
			want:       []string{"string", "table", "math", "json", "coroutine"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewModuleAllowList(tt.additional...)
			assert.Equal(t, tt.want, l.Names())
		})
	}
}

func TestModuleAllowList_String(t *testing.T) {
	l := NewModuleAllowList("coroutine")
	assert.Equal(t, "coroutine, json, math, string, table", l.String())
}

func TestModuleAllowList_NamesIsCopy(t *testing.T) {
	l := NewModuleAllowList()
	names := l.Names()
	names[0] = "mutated"
	assert.Equal(t, "string", l.Names()[0])
}

func TestCapabilitySet_AllowList(t *testing.T) {
	list := NewModuleAllowList("coroutine")
	caps := NewCapabilitySet(list)
	assert.Same(t, list, caps.AllowList())
}
