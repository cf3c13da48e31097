// Package codeflow provides a top-level convenience entry point for creating
// code-acting agents with minimal boilerplate.
//
// Usage:
//
//	import "github.com/codeflow-ai/codeflow"
//
//	a, err := codeflow.New(codeflow.WithOpenAI("gpt-4o-mini"))
//	a, err := codeflow.New(codeflow.WithProvider(myProvider), codeflow.WithModel("custom"))
//
// This is a thin wrapper around [quick.New]; both produce identical results.
// Use this package when you prefer the shorter import path.
package codeflow

import (
	"github.com/codeflow-ai/codeflow/agent"
	"github.com/codeflow-ai/codeflow/quick"
)

// Option configures the agent created by [New].
type Option = quick.Option

// New creates a [agent.CodeActAgent] with minimal configuration.
// At minimum, a provider must be specified via [WithOpenAI] or [WithProvider].
func New(opts ...Option) (*agent.CodeActAgent, error) {
	return quick.New(opts...)
}

// Re-export shortcuts so callers never need to import quick/.

// WithProvider sets a pre-built LLM provider.
var WithProvider = quick.WithProvider

// WithOpenAI selects the OpenAI provider. API key from OPENAI_API_KEY env.
var WithOpenAI = quick.WithOpenAI

// WithAPIKey overrides the API key for provider shortcuts.
var WithAPIKey = quick.WithAPIKey

// WithBaseURL points the provider shortcut at an OpenAI-compatible endpoint.
var WithBaseURL = quick.WithBaseURL

// WithModel overrides the model name.
var WithModel = quick.WithModel

// WithName sets the agent name.
var WithName = quick.WithName

// WithSystemPrompt replaces the generated system prompt.
var WithSystemPrompt = quick.WithSystemPrompt

// WithTools exposes tools to the sandboxed code.
var WithTools = quick.WithTools

// WithImports extends the sandbox module allow-list.
var WithImports = quick.WithImports

// WithMaxSteps bounds the reason/execute loop.
var WithMaxSteps = quick.WithMaxSteps

// WithLogger sets a custom zap logger.
var WithLogger = quick.WithLogger
