package agent

import (
	"fmt"
	"strings"

	"github.com/codeflow-ai/codeflow/types"
)

const promptHeader = `You are a coding agent. Solve the task by writing Lua code, one step at a time.

Rules:
- Reply with exactly one Lua code block per step: ` + "```lua ... ```" + `.
- The value of the last expression (or an explicit return) is the step result.
- Variables do not survive between steps; use the global 'state' table to keep values across steps (state.x = ...).
- print(...) output is captured and shown back to you.
- When you have the answer, call final_answer(answer) from your code, or reply in plain text without a code block.`

// BuildSystemPrompt renders the agent's system prompt: the fixed rules,
// the available tool signatures, and the module allow-list.
func BuildSystemPrompt(tools []types.Tool, authorizedImports []string) string {
	var b strings.Builder
	b.WriteString(promptHeader)

	if len(tools) > 0 {
		b.WriteString("\n\nAvailable tools (callable as plain functions):\n")
		for _, t := range tools {
			b.WriteString("- ")
			b.WriteString(renderToolSignature(t))
			if d := t.Description(); d != "" {
				b.WriteString(" -- ")
				b.WriteString(d)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nImportable modules: %s. Anything else is denied.",
		strings.Join(authorizedImports, ", "))
	return b.String()
}

func renderToolSignature(t types.Tool) string {
	params := t.Params()
	names := make([]string, 0, len(params))
	for _, p := range params {
		name := p.Name
		if !p.Required {
			name += "?"
		}
		names = append(names, name)
	}
	return fmt.Sprintf("%s(%s)", t.Name(), strings.Join(names, ", "))
}
