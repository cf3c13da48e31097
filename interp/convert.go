package interp

import (
	"encoding/json"
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
)

// maxConvertDepth bounds table conversion so cyclic or absurdly nested
// structures produced by sandboxed code cannot recurse without limit.
const maxConvertDepth = 32

// goToLua converts a Go value into its Lua representation inside L.
func goToLua(L *lua.LState, v any) lua.LValue {
	return goToLuaDepth(L, v, 0)
}

func goToLuaDepth(L *lua.LState, v any, depth int) lua.LValue {
	if depth > maxConvertDepth {
		return lua.LNil
	}
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case json.RawMessage:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, goToLuaDepth(L, item, depth+1))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, goToLuaDepth(L, item, depth+1))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// luaToGo converts a Lua value into a plain Go value. Tables with a dense
// 1..n integer key space become []any; all other tables become
// map[string]any. Functions and userdata are opaque and surface as their
// printable form.
func luaToGo(v lua.LValue) any {
	return luaToGoDepth(v, 0, make(map[*lua.LTable]bool))
}

func luaToGoDepth(v lua.LValue, depth int, seen map[*lua.LTable]bool) any {
	if depth > maxConvertDepth {
		return nil
	}
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if seen[val] {
			return nil
		}
		seen[val] = true
		defer delete(seen, val)

		n := val.Len()
		dense := n > 0
		val.ForEach(func(k, _ lua.LValue) {
			num, ok := k.(lua.LNumber)
			if !ok || float64(num) != math.Trunc(float64(num)) ||
				int(num) < 1 || int(num) > n {
				dense = false
			}
		})
		if dense {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, luaToGoDepth(val.RawGetInt(i), depth+1, seen))
			}
			return out
		}
		out := make(map[string]any)
		val.ForEach(func(k, item lua.LValue) {
			out[k.String()] = luaToGoDepth(item, depth+1, seen)
		})
		return out
	case *lua.LUserData:
		if st, ok := val.Value.(*State); ok {
			return st.Snapshot()
		}
		return val.Value
	default:
		return v.String()
	}
}
