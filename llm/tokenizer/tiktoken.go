package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/codeflow-ai/codeflow/types"
)

// modelEncodings maps model names onto their tiktoken encodings.
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

const fallbackEncoding = "cl100k_base"

// Tiktoken counts tokens with the exact vocabulary of an OpenAI-family
// model.
type Tiktoken struct {
	model string
	enc   *tiktoken.Tiktoken
}

// NewTiktoken builds an exact tokenizer for model. Unknown models fall
// back to the cl100k_base encoding; the encoding data may be downloaded
// on first use, so construction can fail offline.
func NewTiktoken(model string) (*Tiktoken, error) {
	encoding := encodingFor(model)
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("init tiktoken encoding %s: %w", encoding, err)
	}
	return &Tiktoken{model: model, enc: enc}, nil
}

func encodingFor(model string) string {
	if enc, ok := modelEncodings[model]; ok {
		return enc
	}
	for prefix, enc := range modelEncodings {
		if strings.HasPrefix(model, prefix) {
			return enc
		}
	}
	return fallbackEncoding
}

// CountTokens returns the exact token count of text.
func (t *Tiktoken) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessageTokens counts one message including per-message framing
// overhead (start/role/end markers).
func (t *Tiktoken) CountMessageTokens(msg types.Message) int {
	total := 4
	total += t.CountTokens(msg.Content)
	total += t.CountTokens(string(msg.Role))
	total += t.CountTokens(msg.Name)
	for _, tc := range msg.ToolCalls {
		total += t.CountTokens(tc.Name)
		total += t.CountTokens(string(tc.Arguments))
	}
	return total
}

// CountMessagesTokens counts a conversation, including the trailing
// assistant-priming overhead.
func (t *Tiktoken) CountMessagesTokens(msgs []types.Message) int {
	total := 3
	for _, m := range msgs {
		total += t.CountMessageTokens(m)
	}
	return total
}

// ForModel returns the best available tokenizer for model: exact counts
// when the encoding can be initialized, a character-based estimate
// otherwise.
func ForModel(model string) types.Tokenizer {
	if t, err := NewTiktoken(model); err == nil {
		return t
	}
	return types.NewEstimateTokenizer()
}
