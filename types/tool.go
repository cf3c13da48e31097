package types

import (
	"context"
	"encoding/json"
	"time"
)

// Param describes one declared tool parameter. Order matters: sandboxed
// code passes arguments positionally, and the adapter maps them to names
// by declaration order.
type Param struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Schema      *JSONSchema `json:"schema,omitempty"`
	Required    bool        `json:"required"`
}

// Tool is an external capability exposed to sandboxed code under a fixed
// name. Implementations are written by trusted authors; the sandbox treats
// the callable as opaque.
type Tool interface {
	// Name returns the binding name the tool is injected under.
	Name() string

	// Description returns the human/model readable description.
	Description() string

	// Params returns the declared parameters, in positional order.
	Params() []Param

	// Call performs the tool's documented effect. Arguments arrive keyed
	// by declared parameter name.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolSchema defines a tool's interface for LLM function calling.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
	Version     string          `json:"version,omitempty"`
}

// SchemaFor builds the function-calling schema for a tool from its
// declared parameter list.
func SchemaFor(t Tool) (ToolSchema, error) {
	obj := NewObjectSchema()
	for _, p := range t.Params() {
		prop := p.Schema
		if prop == nil {
			prop = NewStringSchema()
		}
		if p.Description != "" {
			prop = prop.WithDescription(p.Description)
		}
		obj.AddProperty(p.Name, prop)
		if p.Required {
			obj.AddRequired(p.Name)
		}
	}
	raw, err := obj.ToJSON()
	if err != nil {
		return ToolSchema{}, err
	}
	return ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  raw,
	}, nil
}

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	ToolCallID string          `json:"tool_call_id"`
	Name       string          `json:"name"`
	Result     json.RawMessage `json:"result"`
	Error      string          `json:"error,omitempty"`
	Duration   time.Duration   `json:"duration"`
}

// ToMessage converts ToolResult to a Message.
func (tr ToolResult) ToMessage() Message {
	content := string(tr.Result)
	if tr.Error != "" {
		content = "Error: " + tr.Error
	}
	return Message{
		Role:       RoleTool,
		Content:    content,
		Name:       tr.Name,
		ToolCallID: tr.ToolCallID,
	}
}

// IsError returns true if the tool execution failed.
func (tr ToolResult) IsError() bool {
	return tr.Error != ""
}

// FuncTool adapts a plain function into a Tool. Handy for tests and for
// callers that do not need the declarative authoring workflow.
type FuncTool struct {
	ToolName   string
	ToolDesc   string
	ToolParams []Param
	Fn         func(ctx context.Context, args map[string]any) (any, error)
}

func (f *FuncTool) Name() string        { return f.ToolName }
func (f *FuncTool) Description() string { return f.ToolDesc }
func (f *FuncTool) Params() []Param     { return f.ToolParams }

func (f *FuncTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return f.Fn(ctx, args)
}
