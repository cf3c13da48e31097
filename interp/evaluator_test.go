package interp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalCode(t *testing.T, code string, bindings Bindings, opts Options) (*Result, error) {
	t.Helper()
	return NewEvaluator(nil).Run(context.Background(), code, bindings, opts)
}

func requireFault(t *testing.T, err error, kind FaultKind) *InterpreterError {
	t.Helper()
	require.Error(t, err)
	ie, ok := err.(*InterpreterError)
	require.True(t, ok, "expected *InterpreterError, got %T", err)
	require.Equal(t, kind, ie.Kind, "message: %s", ie.Message)
	return ie
}

func TestRun_ExpressionResult(t *testing.T) {
	res, err := evalCode(t, "1 + 2", Bindings{}, Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Value)
	assert.Equal(t, "", res.Logs)
}

func TestRun_PrintThenReturn(t *testing.T) {
	res, err := evalCode(t, `print("hi")
return 42`, Bindings{}, Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 42, res.Value)
	assert.Contains(t, res.Logs, "hi")
}

func TestRun_NoCompletionValue(t *testing.T) {
	res, err := evalCode(t, `local x = 1`, Bindings{}, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Value)
}

func TestRun_PrintRendersLikeStockPrint(t *testing.T) {
	res, err := evalCode(t, `print("a", 1, true, nil)`, Bindings{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "a\t1\ttrue\tnil\n", res.Logs)
}

func TestRun_UnauthorizedImportDenied(t *testing.T) {
	res, err := evalCode(t, `require("fs")`, Bindings{}, Options{})
	ie := requireFault(t, err, KindCapability)
	assert.Contains(t, ie.Message, `"fs"`)
	assert.Contains(t, ie.Message, "json, math, string, table")
	assert.Equal(t, "", res.Logs)
}

func TestRun_AuthorizedImportResolves(t *testing.T) {
	res, err := evalCode(t, `return require("string").upper("abc")`, Bindings{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ABC", res.Value)
}

func TestRun_AdditionalImportHonored(t *testing.T) {
	caps := NewCapabilitySet(NewModuleAllowList("coroutine"))
	res, err := evalCode(t, `return type(require("coroutine"))`,
		Bindings{Capabilities: caps}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "table", res.Value)
}

func TestRun_DangerousGlobalsStripped(t *testing.T) {
	res, err := evalCode(t,
		`return os == nil and io == nil and dofile == nil and loadstring == nil and debug == nil`,
		Bindings{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, true, res.Value)
}

func TestRun_SafeGlobalsPresent(t *testing.T) {
	res, err := evalCode(t, `return tostring(tonumber("7")) .. type(pairs)`, Bindings{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "7function", res.Value)
}

func TestRun_JSONModule(t *testing.T) {
	res, err := evalCode(t, `local t = json.decode('{"a": 1}')
return json.encode({t.a, 2})`, Bindings{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", res.Value)
}

func TestRun_SyntaxFault(t *testing.T) {
	_, err := evalCode(t, `return (((`, Bindings{}, Options{})
	ie := requireFault(t, err, KindSyntax)
	assert.NotEmpty(t, ie.Message)
}

func TestRun_RuntimeFault(t *testing.T) {
	_, err := evalCode(t, `error("boom")`, Bindings{}, Options{})
	ie := requireFault(t, err, KindRuntime)
	assert.Contains(t, ie.Message, "boom")
}

func TestRun_RuntimeFaultCarriesLineHint(t *testing.T) {
	_, err := evalCode(t, `local x = 1
local y = x + nil`, Bindings{}, Options{})
	ie := requireFault(t, err, KindRuntime)
	assert.Equal(t, 2, ie.Line)
}

func TestRun_Timeout(t *testing.T) {
	start := time.Now()
	_, err := evalCode(t, `while true do end`, Bindings{}, Options{Timeout: 200 * time.Millisecond})
	elapsed := time.Since(start)

	ie := requireFault(t, err, KindTimeout)
	assert.Contains(t, ie.Message, "timed out")
	assert.Less(t, elapsed, 1200*time.Millisecond, "timeout overshoot too large")
}

func TestRun_TimeoutIsNonTransactional(t *testing.T) {
	st := NewState()
	_, err := evalCode(t, `state.x = 5
while true do end`, Bindings{State: st}, Options{Timeout: 200 * time.Millisecond})
	requireFault(t, err, KindTimeout)

	v, ok := st.Get("x")
	require.True(t, ok, "mutations before the timeout must persist")
	assert.EqualValues(t, 5, v)
}

func TestRun_StateReadAndWrite(t *testing.T) {
	st := NewState()
	st.Set("greeting", "hello")

	res, err := evalCode(t, `state.answer = 41 + 1
return state.greeting`, Bindings{State: st}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Value)

	v, ok := st.Get("answer")
	require.True(t, ok)
	assert.EqualValues(t, 42, v)
}

func TestRun_ToolBindingResult(t *testing.T) {
	tools := map[string]ToolFunc{
		"get_weather": func(ctx context.Context, args []any) (any, error) {
			require.Len(t, args, 1)
			return "sunny in " + args[0].(string), nil
		},
	}
	res, err := evalCode(t, `get_weather("Paris")`, Bindings{Tools: tools}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "sunny in Paris", res.Value)
}

func TestRun_ToolErrorBecomesRuntimeFault(t *testing.T) {
	tools := map[string]ToolFunc{
		"flaky": func(ctx context.Context, args []any) (any, error) {
			return nil, assert.AnError
		},
	}
	_, err := evalCode(t, `flaky()`, Bindings{Tools: tools}, Options{})
	ie := requireFault(t, err, KindRuntime)
	assert.Contains(t, ie.Message, "tool flaky")
}

func TestRun_OutputTruncated(t *testing.T) {
	st := NewState()
	res, err := evalCode(t, `for i = 1, 100 do print(string.rep("x", 10)) end`,
		Bindings{State: st}, Options{MaxOutputLen: 200})
	require.NoError(t, err)

	assert.Contains(t, res.Logs, "_Content truncated:")
	assert.True(t, strings.HasPrefix(res.Logs, strings.Repeat("x", 10)))

	stored, ok := st.Get(PrintOutputsKey)
	require.True(t, ok)
	assert.Equal(t, res.Logs, stored)
}

func TestRun_ReservedKeyUsedWhenNothingPrinted(t *testing.T) {
	st := NewState()
	res, err := evalCode(t, `state.print_outputs = "from code"
return 1`, Bindings{State: st}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "from code", res.Logs)
}

func TestRun_ReservedKeyClearedEachCall(t *testing.T) {
	st := NewState()
	e := NewEvaluator(nil)

	res, err := e.Run(context.Background(), `print("hi")`, Bindings{State: st}, Options{})
	require.NoError(t, err)
	assert.Contains(t, res.Logs, "hi")

	res, err = e.Run(context.Background(), `1 + 2`, Bindings{State: st}, Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Value)
	assert.Equal(t, "", res.Logs, "a silent call must not report the previous call's output")
}

func TestRun_PartialLogsSurviveFault(t *testing.T) {
	res, err := evalCode(t, `print("before the crash")
error("after")`, Bindings{}, Options{})
	requireFault(t, err, KindRuntime)
	assert.Contains(t, res.Logs, "before the crash")
}

func TestRun_FreshEnvironmentPerCall(t *testing.T) {
	e := NewEvaluator(nil)
	_, err := e.Run(context.Background(), `leak = 7`, Bindings{}, Options{})
	require.NoError(t, err)

	res, err := e.Run(context.Background(), `return leak`, Bindings{}, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Value, "globals must not survive across calls")
}
