package interp

import (
	"context"
	"fmt"

	"github.com/codeflow-ai/codeflow/types"
)

// ToolFunc is the plain-callable form a tool takes inside the sandbox.
// Arguments arrive positionally, already converted to Go values.
type ToolFunc func(ctx context.Context, args []any) (any, error)

// ToolBindings converts Tool objects into plain callables injectable into
// a sandbox environment, keyed by tool name. Positional arguments are
// mapped to the tool's declared parameter names by declaration order; the
// adapter guarantees the callable accepts exactly the documented
// parameters and nothing else.
func ToolBindings(tools ...types.Tool) map[string]ToolFunc {
	out := make(map[string]ToolFunc, len(tools))
	for _, t := range tools {
		out[t.Name()] = callableFor(t)
	}
	return out
}

func callableFor(t types.Tool) ToolFunc {
	name := t.Name()
	params := t.Params()
	return func(ctx context.Context, args []any) (any, error) {
		if len(args) > len(params) {
			return nil, fmt.Errorf("%s accepts %d argument(s), got %d",
				name, len(params), len(args))
		}
		named := make(map[string]any, len(args))
		for i, a := range args {
			named[params[i].Name] = a
		}
		for _, p := range params {
			if p.Required {
				if _, ok := named[p.Name]; !ok {
					return nil, fmt.Errorf("%s: missing required argument %q", name, p.Name)
				}
			}
		}
		return t.Call(ctx, named)
	}
}
