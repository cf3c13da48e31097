package interp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/codeflow-ai/codeflow/types"
)

// Session is the stateful wrapper a calling agent holds across repeated
// executions. It owns the persistent state object and the fixed tool
// bindings, and serializes calls: exactly one execution is in flight per
// session at a time (concurrent Execute calls queue on an internal lock).
// There is no implicit reset; constructing a new session is the only way
// to discard state.
type Session struct {
	id        string
	evaluator *Evaluator
	caps      *CapabilitySet
	tools     map[string]ToolFunc
	state     *State
	opts      Options
	logger    *zap.Logger
	recorder  Recorder

	additionalImports []string

	execMu sync.Mutex
}

// SessionOption configures a Session at construction time.
type SessionOption func(*Session)

// WithAdditionalImports widens the session's module allow-list beyond the
// fixed base list. Duplicates are removed; base members remain present.
// Repeated applications accumulate.
func WithAdditionalImports(names ...string) SessionOption {
	return func(s *Session) {
		s.additionalImports = append(s.additionalImports, names...)
	}
}

// WithTools injects Tool objects as sandbox bindings, keyed by tool name.
func WithTools(tools ...types.Tool) SessionOption {
	return func(s *Session) {
		for name, fn := range ToolBindings(tools...) {
			s.tools[name] = fn
		}
	}
}

// WithToolFuncs injects pre-built callables as sandbox bindings.
func WithToolFuncs(tools map[string]ToolFunc) SessionOption {
	return func(s *Session) {
		for name, fn := range tools {
			s.tools[name] = fn
		}
	}
}

// WithTimeout overrides the per-call wall-clock budget.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.opts.Timeout = d }
}

// WithMaxOutputLen overrides the captured-output bound.
func WithMaxOutputLen(n int) SessionOption {
	return func(s *Session) { s.opts.MaxOutputLen = n }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithRecorder attaches an execution telemetry recorder.
func WithRecorder(r Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

// NewSession creates a session with an empty persistent state. The
// capability set and allow-list are computed once here and are immutable
// for the session's lifetime.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:     uuid.NewString(),
		tools:  make(map[string]ToolFunc),
		state:  NewState(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.caps = NewCapabilitySet(NewModuleAllowList(s.additionalImports...))
	s.evaluator = NewEvaluator(s.logger.With(zap.String("session_id", s.id)))
	s.evaluator.recorder = s.recorder
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the session's persistent state object.
func (s *Session) State() *State { return s.state }

// AuthorizedImports returns the session's module allow-list.
func (s *Session) AuthorizedImports() []string {
	return s.caps.AllowList().Names()
}

// Execute merges extraVariables into the persistent state (right-biased:
// extra keys overwrite existing ones), evaluates code in a fresh sandbox
// seeded with capabilities, tools and state, and returns the completion
// value with the captured logs. Every failure surfaced here is an
// *InterpreterError; faults of any other type are wrapped, and wrapping an
// already-normalized error preserves it unchanged.
func (s *Session) Execute(ctx context.Context, code string, extraVariables map[string]any) (any, string, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	ctx, span := otel.Tracer("codeflow/interp").Start(ctx, "session.execute",
		trace.WithAttributes(attribute.String("session.id", s.id)))
	defer span.End()

	s.state.Merge(extraVariables)

	res, err := s.evaluator.Run(ctx, code, Bindings{
		Capabilities: s.caps,
		Tools:        s.tools,
		State:        s.state,
	}, s.opts)
	if err != nil {
		wrapped := Wrap(err)
		span.SetStatus(codes.Error, string(wrapped.Kind))
		return nil, res.Logs, wrapped
	}
	span.SetStatus(codes.Ok, "")
	return res.Value, res.Logs, nil
}
