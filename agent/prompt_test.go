package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeflow-ai/codeflow/types"
)

func weatherTool() types.Tool {
	return &types.FuncTool{
		ToolName: "get_weather",
		ToolDesc: "Look up the current weather for a city.",
		ToolParams: []types.Param{
			{Name: "city", Required: true},
			{Name: "units", Required: false},
		},
		Fn: func(context.Context, map[string]any) (any, error) { return nil, nil },
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt([]types.Tool{weatherTool()}, []string{"string", "table", "math", "json"})

	assert.Contains(t, prompt, "get_weather(city, units?)")
	assert.Contains(t, prompt, "Look up the current weather for a city.")
	assert.Contains(t, prompt, "Importable modules: string, table, math, json. Anything else is denied.")
	assert.Contains(t, prompt, "final_answer(answer)")
	assert.Contains(t, prompt, "state")
}

func TestBuildSystemPrompt_NoTools(t *testing.T) {
	prompt := BuildSystemPrompt(nil, []string{"string"})

	assert.NotContains(t, prompt, "Available tools")
	assert.Contains(t, prompt, "Importable modules: string.")
}

func TestRenderToolSignature_NoParams(t *testing.T) {
	tool := &types.FuncTool{ToolName: "now"}
	assert.Equal(t, "now()", renderToolSignature(tool))
}
