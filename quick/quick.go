// Package quick provides a convenience entry point for creating code-acting
// agents with minimal boilerplate.
//
// The package lives under quick/ (not root) so the root facade can re-export
// it without an import cycle.
//
// Usage:
//
//	import "github.com/codeflow-ai/codeflow/quick"
//
//	a, err := quick.New(quick.WithOpenAI("gpt-4o-mini"))
//	a, err := quick.New(quick.WithProvider(myProvider), quick.WithModel("custom"))
package quick

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/codeflow-ai/codeflow/agent"
	"github.com/codeflow-ai/codeflow/interp"
	"github.com/codeflow-ai/codeflow/llm"
	"github.com/codeflow-ai/codeflow/llm/providers/openai"
	"github.com/codeflow-ai/codeflow/llm/tokenizer"
	"github.com/codeflow-ai/codeflow/types"
)

// Option configures the agent created by New.
type Option func(*options)

type options struct {
	name         string
	model        string
	systemPrompt string
	provider     llm.Provider
	logger       *zap.Logger
	tools        []types.Tool
	imports      []string
	maxSteps     int

	// used when provider is nil
	apiKey  string
	baseURL string
}

// WithProvider sets a pre-built LLM provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithOpenAI selects the OpenAI provider with the given model.
// API key is read from OPENAI_API_KEY unless WithAPIKey overrides it.
func WithOpenAI(model string) Option {
	return func(o *options) {
		o.model = model
		if o.apiKey == "" {
			o.apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// WithAPIKey overrides the API key for the provider shortcut.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL points the provider shortcut at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithModel sets the model name. Overrides the model set by shortcuts.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithName sets the agent name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithSystemPrompt replaces the generated system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) { o.systemPrompt = prompt }
}

// WithTools exposes tools to the sandboxed code.
func WithTools(tools ...types.Tool) Option {
	return func(o *options) { o.tools = append(o.tools, tools...) }
}

// WithImports extends the sandbox module allow-list.
func WithImports(modules ...string) Option {
	return func(o *options) { o.imports = append(o.imports, modules...) }
}

// WithMaxSteps bounds the reason/execute loop.
func WithMaxSteps(n int) Option {
	return func(o *options) { o.maxSteps = n }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a CodeActAgent with minimal configuration.
func New(opts ...Option) (*agent.CodeActAgent, error) {
	o := &options{name: "codeflow-agent"}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	p := o.provider
	if p == nil {
		if o.model == "" {
			return nil, fmt.Errorf("provider is required: use WithProvider or WithOpenAI")
		}
		if o.apiKey == "" {
			return nil, fmt.Errorf("API key is required: set OPENAI_API_KEY or use WithAPIKey")
		}
		p = openai.New(openai.Config{
			APIKey:       o.apiKey,
			BaseURL:      o.baseURL,
			DefaultModel: o.model,
		}, o.logger)
	}

	agentOpts := []agent.Option{
		agent.WithLogger(o.logger),
		agent.WithTokenizer(tokenizer.ForModel(o.model)),
	}
	if len(o.tools) > 0 {
		agentOpts = append(agentOpts, agent.WithTools(o.tools...))
	}
	if len(o.imports) > 0 {
		agentOpts = append(agentOpts,
			agent.WithSessionOptions(interp.WithAdditionalImports(o.imports...)))
	}

	return agent.New(p, agent.Config{
		Name:         o.name,
		Model:        o.model,
		SystemPrompt: o.systemPrompt,
		MaxSteps:     o.maxSteps,
	}, agentOpts...), nil
}
