package agent

import (
	"regexp"
	"strings"
)

var (
	luaFencePattern = regexp.MustCompile("(?s)```lua\\s*\\n(.*?)```")
	anyFencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")
)

// ExtractCode pulls the first fenced code block out of a model reply.
// A ```lua fence wins over an untagged one. Returns false when the reply
// carries no code block, which the loop treats as a plain-text answer.
func ExtractCode(reply string) (string, bool) {
	if m := luaFencePattern.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := anyFencePattern.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}
