package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func TestLuaToGo_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   lua.LValue
		want any
	}{
		{"nil", lua.LNil, nil},
		{"true", lua.LTrue, true},
		{"false", lua.LFalse, false},
		{"integral number", lua.LNumber(42), int64(42)},
		{"negative integral", lua.LNumber(-7), int64(-7)},
		{"fractional number", lua.LNumber(1.5), 1.5},
		{"string", lua.LString("hi"), "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, luaToGo(tt.in))
		})
	}
}

func TestLuaToGo_DenseTableBecomesSlice(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	tbl.Append(lua.LNumber(1))
	tbl.Append(lua.LString("two"))
	tbl.Append(lua.LTrue)

	assert.Equal(t, []any{int64(1), "two", true}, luaToGo(tbl))
}

func TestLuaToGo_MapTable(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	tbl.RawSetString("city", lua.LString("Paris"))
	tbl.RawSetString("temp", lua.LNumber(21))

	assert.Equal(t, map[string]any{"city": "Paris", "temp": int64(21)}, luaToGo(tbl))
}

func TestLuaToGo_CyclicTable(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	tbl.RawSetString("self", tbl)

	got := luaToGo(tbl)
	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Nil(t, m["self"])
}

func TestGoToLua_RoundTrip(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	in := map[string]any{
		"name":  "codeflow",
		"count": int64(3),
		"ratio": 0.5,
		"tags":  []any{"a", "b"},
		"on":    true,
	}
	assert.Equal(t, in, luaToGo(goToLua(L, in)))
}

func TestGoToLua_ByteSlicesBecomeStrings(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	assert.Equal(t, lua.LString("raw"), goToLua(L, []byte("raw")))
}

func TestGoToLua_DepthBound(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	deep := any("leaf")
	for i := 0; i < maxConvertDepth+5; i++ {
		deep = []any{deep}
	}
	// must terminate; the innermost layers degrade to nil
	assert.NotNil(t, goToLua(L, deep))
}
