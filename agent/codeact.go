package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeflow-ai/codeflow/internal/metrics"
	"github.com/codeflow-ai/codeflow/interp"
	"github.com/codeflow-ai/codeflow/llm"
	"github.com/codeflow-ai/codeflow/types"
)

const (
	// DefaultMaxSteps bounds the reason/execute loop.
	DefaultMaxSteps = 10
	// DefaultMaxObservationLen bounds observation text fed back to the
	// model, independent of the interpreter-layer output bound.
	DefaultMaxObservationLen = 20000
	// DefaultTokenBudget bounds conversation history.
	DefaultTokenBudget = 64000
)

// Config holds the loop parameters.
type Config struct {
	Name              string
	Model             string
	SystemPrompt      string
	MaxSteps          int
	MaxObservationLen int
	TokenBudget       int
	Temperature       float32
	MaxTokens         int
}

// RunResult is the outcome of one completed run.
type RunResult struct {
	RunID  string           `json:"run_id"`
	Answer string           `json:"answer"`
	Steps  []Step           `json:"steps"`
	Usage  types.TokenUsage `json:"usage"`
}

// CodeActAgent drives the write-code/run-code/observe loop against one
// sandbox session. At most one run is in flight at a time; a second Run
// while busy fails fast instead of queueing.
type CodeActAgent struct {
	cfg       Config
	provider  llm.Provider
	session   *interp.Session
	tools     []types.Tool
	tokenizer types.Tokenizer
	store     StepStore
	collector *metrics.Collector
	logger    *zap.Logger

	running     atomic.Bool
	finalAnswer *string

	sessionOpts []interp.SessionOption
}

// Option configures a CodeActAgent at construction time.
type Option func(*CodeActAgent)

// WithTools exposes tool objects to the sandboxed code.
func WithTools(tools ...types.Tool) Option {
	return func(a *CodeActAgent) { a.tools = append(a.tools, tools...) }
}

// WithTokenizer overrides the token counter used for history trimming.
func WithTokenizer(t types.Tokenizer) Option {
	return func(a *CodeActAgent) { a.tokenizer = t }
}

// WithStepStore persists every step record.
func WithStepStore(s StepStore) Option {
	return func(a *CodeActAgent) { a.store = s }
}

// WithMetrics records step and execution metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *CodeActAgent) { a.collector = c }
}

// WithLogger sets the agent logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *CodeActAgent) { a.logger = l }
}

// WithSessionOptions forwards options to the underlying sandbox session
// (additional imports, timeout, output bound).
func WithSessionOptions(opts ...interp.SessionOption) Option {
	return func(a *CodeActAgent) { a.sessionOpts = append(a.sessionOpts, opts...) }
}

// New creates a CodeActAgent with its own sandbox session.
func New(provider llm.Provider, cfg Config, opts ...Option) *CodeActAgent {
	if cfg.Name == "" {
		cfg.Name = "codeact"
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.MaxObservationLen <= 0 {
		cfg.MaxObservationLen = DefaultMaxObservationLen
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = DefaultTokenBudget
	}

	a := &CodeActAgent{
		cfg:      cfg,
		provider: provider,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tokenizer == nil {
		a.tokenizer = types.NewEstimateTokenizer()
	}

	sessionOpts := append([]interp.SessionOption{
		interp.WithTools(a.tools...),
		interp.WithToolFuncs(map[string]interp.ToolFunc{
			"final_answer": a.captureFinalAnswer,
		}),
		interp.WithLogger(a.logger),
	}, a.sessionOpts...)
	if a.collector != nil {
		sessionOpts = append(sessionOpts, interp.WithRecorder(a.collector))
	}
	a.session = interp.NewSession(sessionOpts...)

	return a
}

// Session returns the agent's sandbox session.
func (a *CodeActAgent) Session() *interp.Session { return a.session }

// Run executes one task to completion. The loop ends when the model
// calls final_answer, replies without a code block, or the step budget
// is exhausted.
func (a *CodeActAgent) Run(ctx context.Context, task string) (*RunResult, error) {
	if a.provider == nil {
		return nil, types.NewError(types.ErrProviderNotSet, "agent has no LLM provider")
	}
	if !a.running.CompareAndSwap(false, true) {
		return nil, types.NewError(types.ErrAgentBusy, "a run is already in flight")
	}
	defer a.running.Store(false)
	a.finalAnswer = nil

	result := &RunResult{RunID: uuid.NewString()}
	messages := []types.Message{
		types.NewSystemMessage(a.systemPrompt()),
		types.NewUserMessage(task),
	}

	a.logger.Info("run started",
		zap.String("agent", a.cfg.Name),
		zap.String("run_id", result.RunID),
	)

	for step := 1; step <= a.cfg.MaxSteps; step++ {
		messages = a.trimHistory(messages)

		llmStart := time.Now()
		resp, err := a.provider.Completion(ctx, &llm.ChatRequest{
			TraceID:     result.RunID,
			Model:       a.cfg.Model,
			Messages:    messages,
			Temperature: a.cfg.Temperature,
			MaxTokens:   a.cfg.MaxTokens,
		})
		a.recordLLMRequest(err, time.Since(llmStart), resp)
		if err != nil {
			return nil, err
		}
		result.Usage.Add(resp.Usage)

		reply := resp.FirstText()
		messages = append(messages, types.NewAssistantMessage(reply))

		rec := Step{
			RunID:     result.RunID,
			Index:     step,
			Reply:     reply,
			CreatedAt: time.Now(),
		}

		code, ok := ExtractCode(reply)
		if !ok {
			// a reply without code is the final answer
			result.Answer = strings.TrimSpace(reply)
			rec.Observation = "final answer"
			a.finishStep(ctx, result, &rec, "final_text")
			return result, nil
		}
		rec.Code = code

		start := time.Now()
		value, logs, execErr := a.session.Execute(ctx, code, nil)
		rec.Duration = time.Since(start)
		rec.Logs = logs

		var observation string
		outcome := "executed"
		if execErr != nil {
			rec.Error = execErr.Error()
			observation = "Execution failed:\n" + execErr.Error()
			if logs != "" {
				observation += "\nOutput before the failure:\n" + logs
			}
			outcome = "error"
		} else {
			rec.Value = renderValue(value)
			observation = "Result: " + rec.Value
			if logs != "" {
				observation += "\nOutput:\n" + logs
			}
		}
		observation = interp.TruncateMiddle(observation, a.cfg.MaxObservationLen)
		rec.Observation = observation
		a.finishStep(ctx, result, &rec, outcome)

		if a.finalAnswer != nil {
			result.Answer = *a.finalAnswer
			return result, nil
		}
		messages = append(messages, types.NewObservationMessage(observation))
	}

	return result, types.NewError(types.ErrMaxSteps,
		fmt.Sprintf("no final answer after %d steps", a.cfg.MaxSteps))
}

func (a *CodeActAgent) systemPrompt() string {
	if a.cfg.SystemPrompt != "" {
		return a.cfg.SystemPrompt
	}
	return BuildSystemPrompt(a.tools, a.session.AuthorizedImports())
}

// trimHistory drops the oldest non-system messages until the
// conversation fits the token budget. The system prompt and the last
// two messages always survive.
func (a *CodeActAgent) trimHistory(messages []types.Message) []types.Message {
	for len(messages) > 3 && a.tokenizer.CountMessagesTokens(messages) > a.cfg.TokenBudget {
		// drop messages[1], keeping the system prompt at index 0
		messages = append(messages[:1], messages[2:]...)
	}
	return messages
}

func (a *CodeActAgent) captureFinalAnswer(_ context.Context, args []any) (any, error) {
	answer := ""
	if len(args) > 0 {
		answer = renderValue(args[0])
	}
	a.finalAnswer = &answer
	return nil, nil
}

func (a *CodeActAgent) finishStep(ctx context.Context, result *RunResult, rec *Step, outcome string) {
	result.Steps = append(result.Steps, *rec)
	if a.store != nil {
		if err := a.store.SaveStep(ctx, rec); err != nil {
			a.logger.Warn("step persistence failed",
				zap.String("run_id", rec.RunID),
				zap.Int("step", rec.Index),
				zap.Error(err),
			)
		}
	}
	if a.collector != nil {
		a.collector.RecordAgentStep(a.cfg.Name, outcome)
	}
	a.logger.Debug("step finished",
		zap.String("run_id", rec.RunID),
		zap.Int("step", rec.Index),
		zap.String("outcome", outcome),
		zap.Duration("duration", rec.Duration),
	)
}

func (a *CodeActAgent) recordLLMRequest(err error, duration time.Duration, resp *llm.ChatResponse) {
	if a.collector == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	var promptTokens, completionTokens int
	if resp != nil {
		promptTokens = resp.Usage.PromptTokens
		completionTokens = resp.Usage.CompletionTokens
	}
	a.collector.RecordLLMRequest(a.provider.Name(), a.cfg.Model, status, duration, promptTokens, completionTokens)
}

// renderValue renders a sandbox completion value for the model: strings
// pass through, everything else becomes compact JSON.
func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
