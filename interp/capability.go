package interp

import (
	"encoding/json"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// BaseAuthorizedImports is the fixed base list of importable modules every
// session is granted. Caller-supplied additions are unioned on top; import
// of anything outside the union fails closed.
var BaseAuthorizedImports = []string{"string", "table", "math", "json"}

// safeBaseGlobals enumerates the base-library bindings allowed to survive
// into a sandbox environment. Everything else OpenBase registers — dofile,
// loadfile, load, loadstring, getfenv, setfenv, newproxy, collectgarbage,
// module, require, print — is removed and, where needed, replaced by a
// capability-gated implementation. The table is explicit and immutable: a
// binding absent here never reaches sandboxed code through the ambient
// global scope.
var safeBaseGlobals = map[string]bool{
	"assert":       true,
	"error":        true,
	"ipairs":       true,
	"next":         true,
	"pairs":        true,
	"pcall":        true,
	"rawequal":     true,
	"rawget":       true,
	"rawset":       true,
	"select":       true,
	"tonumber":     true,
	"tostring":     true,
	"type":         true,
	"unpack":       true,
	"xpcall":       true,
	"getmetatable": true,
	"setmetatable": true,
	"_G":           true,
	"_VERSION":     true,
}

// stdModuleOpeners maps module names the registry knows how to open onto
// their gopher-lua openers. os, io, debug, package and channel are absent
// on purpose: no opener exists for them, so even an allow-listed name
// cannot summon filesystem, process or reflection primitives.
var stdModuleOpeners = map[string]lua.LGFunction{
	"string":    lua.OpenString,
	"table":     lua.OpenTable,
	"math":      lua.OpenMath,
	"coroutine": lua.OpenCoroutine,
}

// ModuleAllowList is the ordered set of module identifiers one session may
// import.
type ModuleAllowList struct {
	names []string
	set   map[string]bool
}

// NewModuleAllowList unions the fixed base list with additional names,
// removing duplicates. Base members are always present.
func NewModuleAllowList(additional ...string) *ModuleAllowList {
	l := &ModuleAllowList{set: make(map[string]bool)}
	for _, name := range BaseAuthorizedImports {
		l.add(name)
	}
	for _, name := range additional {
		l.add(strings.TrimSpace(name))
	}
	return l
}

func (l *ModuleAllowList) add(name string) {
	if name == "" || l.set[name] {
		return
	}
	l.set[name] = true
	l.names = append(l.names, name)
}

// Contains reports membership.
func (l *ModuleAllowList) Contains(name string) bool {
	return l.set[name]
}

// Names returns the authorized names in registration order.
func (l *ModuleAllowList) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// String renders the allow list for denial messages.
func (l *ModuleAllowList) String() string {
	sorted := l.Names()
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

// CapabilitySet is the immutable registry of safe bindings and the import
// gate for one session. Constructed once per session; pure lookups only.
type CapabilitySet struct {
	allowList *ModuleAllowList
}

// NewCapabilitySet builds a registry whose import gate honors the given
// allow list.
func NewCapabilitySet(allowList *ModuleAllowList) *CapabilitySet {
	return &CapabilitySet{allowList: allowList}
}

// AllowList returns the registry's module allow list.
func (c *CapabilitySet) AllowList() *ModuleAllowList {
	return c.allowList
}

// install seeds a fresh LState with exactly the enumerated safe bindings:
// the filtered base library, the allow-listed standard modules, and the
// capability-gated require replacement.
func (c *CapabilitySet) install(L *lua.LState, run *runContext) {
	openModule(L, lua.BaseLibName, lua.OpenBase)

	// Strip every base binding not in the enumerated safe table.
	globals := L.Get(lua.GlobalsIndex).(*lua.LTable)
	var doomed []string
	globals.ForEach(func(k, _ lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}
		if !safeBaseGlobals[string(name)] {
			doomed = append(doomed, string(name))
		}
	})
	for _, name := range doomed {
		L.SetGlobal(name, lua.LNil)
	}

	// Open the allow-listed modules eagerly so both the module globals and
	// require(name) resolve to the same table.
	for _, name := range c.allowList.Names() {
		if opener, ok := stdModuleOpeners[name]; ok {
			openModule(L, name, opener)
		}
	}
	if c.allowList.Contains("json") {
		L.SetGlobal("json", newJSONModule(L))
	}

	L.SetGlobal("require", L.NewFunction(c.resolveImport(run)))
}

// resolveImport returns the capability-gated require implementation.
// In-set names resolve to the module table; out-of-set names fail closed
// with a denial naming the module and echoing the full authorized list.
func (c *CapabilitySet) resolveImport(run *runContext) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		if !c.allowList.Contains(name) {
			run.deniedModule = name
			L.RaiseError("import of %q is not allowed; authorized modules: [%s]",
				name, c.allowList.String())
			return 0
		}
		mod := L.GetGlobal(name)
		if mod == lua.LNil {
			L.RaiseError("module %q is authorized but not available in this build", name)
			return 0
		}
		L.Push(mod)
		return 1
	}
}

// openModule runs a stdlib opener the way gopher-lua expects when
// SkipOpenLibs is set.
func openModule(L *lua.LState, name string, opener lua.LGFunction) {
	L.Push(L.NewFunction(opener))
	L.Push(lua.LString(name))
	L.Call(1, 0)
}

// newJSONModule builds the json capability table (encode/decode over
// encoding/json).
func newJSONModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "encode", L.NewFunction(func(L *lua.LState) int {
		v := luaToGo(L.CheckAny(1))
		data, err := json.Marshal(v)
		if err != nil {
			L.RaiseError("json.encode: %v", err)
			return 0
		}
		L.Push(lua.LString(data))
		return 1
	}))
	L.SetField(mod, "decode", L.NewFunction(func(L *lua.LState) int {
		raw := L.CheckString(1)
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			L.RaiseError("json.decode: %v", err)
			return 0
		}
		L.Push(goToLua(L, v))
		return 1
	}))
	return mod
}
