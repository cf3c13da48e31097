package interp

import (
	"context"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout is the wall-clock budget for one execution call.
	DefaultTimeout = 5000 * time.Millisecond

	// DefaultMaxOutputLen bounds captured output at the interpreter layer.
	DefaultMaxOutputLen = 50000

	// maxOperations is an advisory bound on interpreted operations per
	// call, a secondary guard against runaway loops. The embedded VM has
	// no cheap per-instruction hook, so the context deadline is the
	// authoritative enforcement mechanism and this constant is not
	// checked.
	maxOperations = 10_000_000
)

// Options configures one evaluator call.
type Options struct {
	// Timeout is the wall-clock budget. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxOutputLen bounds captured output. Zero means DefaultMaxOutputLen.
	MaxOutputLen int
}

// Bindings is everything seeded into a call's fresh environment: the
// session's capability registry, its tool bindings, and the persistent
// state object (shared by reference).
type Bindings struct {
	Capabilities *CapabilitySet
	Tools        map[string]ToolFunc
	State        *State
}

// Result is the outcome of one successful execution call.
type Result struct {
	// Value is the completion value of the executed code: the value of
	// its final expression, or nil when the code produced none.
	Value any
	// Logs is the captured (possibly truncated) print output.
	Logs string
}

// runContext carries per-call signals between the capability gate and the
// fault classifier.
type runContext struct {
	deniedModule string
}

// Recorder receives execution telemetry. Satisfied by
// internal/metrics.Collector; a nil recorder disables recording.
type Recorder interface {
	RecordExecution(kind string, duration time.Duration)
	RecordDenial(module string)
	RecordTruncation()
}

// Evaluator executes untrusted code strings in isolated environments. It
// retains nothing between calls; every Run builds a fresh environment that
// shares only the caller's state object and bindings.
type Evaluator struct {
	logger   *zap.Logger
	recorder Recorder
}

// NewEvaluator creates an evaluator. A nil logger is replaced by a noop.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger}
}

// Run evaluates code under the given bindings and options. On success the
// result carries the completion value and captured logs; on failure the
// returned error is always an *InterpreterError and the partial logs are
// still returned. State mutations performed before a timeout fired are
// visible afterwards: aborts are non-transactional.
func (e *Evaluator) Run(ctx context.Context, code string, bindings Bindings, opts Options) (*Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOut := opts.MaxOutputLen
	if maxOut <= 0 {
		maxOut = DefaultMaxOutputLen
	}
	caps := bindings.Capabilities
	if caps == nil {
		caps = NewCapabilitySet(NewModuleAllowList())
	}

	run := &runContext{}
	capturer := NewCapturer()

	L := lua.NewState(lua.Options{SkipOpenLibs: true, IncludeGoStackTrace: false})
	defer L.Close()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	caps.install(L, run)
	installPrint(L, capturer)
	if bindings.State != nil {
		// The capture slot starts every call clean; a value under the
		// reserved key is honored only when this call's code wrote it.
		bindings.State.Delete(PrintOutputsKey)
		installState(L, bindings.State)
	}
	for name, fn := range bindings.Tools {
		installTool(L, runCtx, name, fn)
	}

	fn, perr := compileChunk(L, code)
	if perr != nil {
		e.logger.Debug("sandbox compile failed", zap.Error(perr))
		return &Result{}, newFault(KindSyntax, perr.Error(), perr)
	}

	start := time.Now()
	L.SetContext(runCtx)
	L.Push(fn)
	callErr := L.PCall(0, lua.MultRet, nil)

	logs := e.drainOutput(capturer, bindings.State, maxOut)

	if callErr != nil {
		fault := e.classify(callErr, run, runCtx, timeout)
		if e.recorder != nil {
			e.recorder.RecordExecution(string(fault.Kind), time.Since(start))
			if fault.Kind == KindCapability && run.deniedModule != "" {
				e.recorder.RecordDenial(run.deniedModule)
			}
		}
		e.logger.Debug("sandbox execution failed",
			zap.String("kind", string(fault.Kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(fault),
		)
		return &Result{Logs: logs}, fault
	}

	var value any
	if L.GetTop() > 0 {
		value = luaToGo(L.Get(1))
	}

	if e.recorder != nil {
		e.recorder.RecordExecution("ok", time.Since(start))
	}
	e.logger.Debug("sandbox execution completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("log_bytes", len(logs)),
	)
	return &Result{Value: value, Logs: logs}, nil
}

// drainOutput collects captured print output, honors text this call's code
// stowed under the reserved state key (the key is cleared before execution,
// so a prior call's logs never leak forward), applies truncation, and
// records the final text back under that key.
func (e *Evaluator) drainOutput(capturer *Capturer, state *State, maxOut int) string {
	captured := capturer.Drain()
	if state != nil && captured == "" {
		if v, ok := state.Get(PrintOutputsKey); ok {
			if s, ok := v.(string); ok {
				captured = s
			}
		}
	}
	logs := TruncateMiddle(captured, maxOut)
	if e.recorder != nil && logs != captured {
		e.recorder.RecordTruncation()
	}
	if state != nil && logs != "" {
		state.Set(PrintOutputsKey, logs)
	}
	return logs
}

// classify maps a raw evaluation error onto the fault taxonomy.
func (e *Evaluator) classify(err error, run *runContext, ctx context.Context, timeout time.Duration) *InterpreterError {
	msg := apiErrorMessage(err)
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return newFault(KindTimeout,
			fmt.Sprintf("execution timed out: the %v wall-clock budget elapsed", timeout), err)
	case run.deniedModule != "" && strings.Contains(msg, "is not allowed"):
		return newFault(KindCapability, msg, err)
	default:
		return newFault(KindRuntime, msg, err)
	}
}

// compileChunk realizes completion-value semantics: the code is first
// compiled as a single expression chunk ("return <code>"); when that fails
// to parse it is compiled verbatim, in which case only an explicit return
// yields a value.
func compileChunk(L *lua.LState, code string) (*lua.LFunction, error) {
	fn, err := L.Load(strings.NewReader("return "+code), chunkName)
	if err == nil {
		return fn, nil
	}
	fn, rawErr := L.Load(strings.NewReader(code), chunkName)
	if rawErr != nil {
		return nil, rawErr
	}
	return fn, nil
}

// installPrint wires the sandbox's print to the call's capturer. Arguments
// are tostring-rendered and tab-joined, matching stock print.
func installPrint(L *lua.LState, capturer *Capturer) {
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		capturer.Record(strings.Join(parts, "\t") + "\n")
		return 0
	}))
}

// installState exposes the session state as the global "state": a proxy
// whose reads and writes go straight to the shared Go map, so mutations
// are visible to the caller the moment they happen.
func installState(L *lua.LState, st *State) {
	ud := L.NewUserData()
	ud.Value = st
	mt := L.NewTable()
	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(2)
		v, ok := st.Get(key)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(goToLua(L, v))
		return 1
	}))
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(2)
		st.Set(key, luaToGo(L.CheckAny(3)))
		return 0
	}))
	L.SetMetatable(ud, mt)
	L.SetGlobal("state", ud)
}

// installTool binds a tool callable as a sandbox global under its name.
// Tool failures surface as runtime faults; the sandbox treats the callable
// itself as opaque.
func installTool(L *lua.LState, ctx context.Context, name string, fn ToolFunc) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			args = append(args, luaToGo(L.Get(i)))
		}
		out, err := fn(ctx, args)
		if err != nil {
			L.RaiseError("tool %s: %v", name, err)
			return 0
		}
		L.Push(goToLua(L, out))
		return 1
	}))
}

func apiErrorMessage(err error) string {
	if ae, ok := err.(*lua.ApiError); ok {
		return ae.Object.String()
	}
	return err.Error()
}
