package interp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeflow-ai/codeflow/types"
)

func addTool() types.Tool {
	return &types.FuncTool{
		ToolName: "add",
		ToolParams: []types.Param{
			{Name: "a", Required: true},
			{Name: "b", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			return args["a"].(int) + args["b"].(int), nil
		},
	}
}

func TestToolBindings_PositionalMapping(t *testing.T) {
	bindings := ToolBindings(addTool())
	fn, ok := bindings["add"]
	require.True(t, ok)

	out, err := fn(context.Background(), []any{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 5, out)
}

func TestToolBindings_TooManyArguments(t *testing.T) {
	fn := ToolBindings(addTool())["add"]
	_, err := fn(context.Background(), []any{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 argument(s), got 3")
}

func TestToolBindings_MissingRequiredArgument(t *testing.T) {
	fn := ToolBindings(addTool())["add"]
	_, err := fn(context.Background(), []any{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required argument "b"`)
}

func TestToolBindings_OptionalArgumentOmitted(t *testing.T) {
	echo := &types.FuncTool{
		ToolName: "echo",
		ToolParams: []types.Param{
			{Name: "text", Required: true},
			{Name: "repeat", Required: false},
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			if _, ok := args["repeat"]; ok {
				return nil, assert.AnError
			}
			return args["text"], nil
		},
	}
	fn := ToolBindings(echo)["echo"]
	out, err := fn(context.Background(), []any{"hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}
