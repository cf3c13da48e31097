// Package mocks provides test doubles for the llm boundary.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/codeflow-ai/codeflow/llm"
	"github.com/codeflow-ai/codeflow/types"
)

// ScriptedProvider replays a fixed sequence of assistant replies, one
// per Completion call. It is safe for concurrent use.
type ScriptedProvider struct {
	mu      sync.Mutex
	replies []string
	calls   int
	usage   types.TokenUsage
}

// NewScriptedProvider creates a provider that answers with the given
// replies in order.
func NewScriptedProvider(replies ...string) *ScriptedProvider {
	return &ScriptedProvider{replies: replies}
}

// WithUsage reports the given usage on every completion.
func (p *ScriptedProvider) WithUsage(u types.TokenUsage) *ScriptedProvider {
	p.usage = u
	return p
}

// CallCount returns how many completions have been served.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *ScriptedProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls >= len(p.replies) {
		return nil, fmt.Errorf("no scripted reply for call %d", p.calls+1)
	}
	reply := p.replies[p.calls]
	p.calls++
	return &llm.ChatResponse{
		Model:   req.Model,
		Choices: []llm.ChatChoice{{Message: types.NewAssistantMessage(reply)}},
		Usage:   p.usage,
	}, nil
}

func (p *ScriptedProvider) Stream(context.Context, *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("scripted provider does not stream")
}

func (p *ScriptedProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *ScriptedProvider) Name() string { return "scripted" }

// FailingProvider fails every call with a fixed error.
type FailingProvider struct {
	Err error
}

func (p *FailingProvider) Completion(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, p.Err
}

func (p *FailingProvider) Stream(context.Context, *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, p.Err
}

func (p *FailingProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return nil, p.Err
}

func (p *FailingProvider) Name() string { return "failing" }
