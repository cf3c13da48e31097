package types

// TokenUsage aggregates token accounting across LLM calls.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}

// Add accumulates another usage record into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.Cost += other.Cost
}

// Tokenizer counts tokens for budget enforcement.
type Tokenizer interface {
	CountTokens(text string) int
	CountMessageTokens(msg Message) int
	CountMessagesTokens(msgs []Message) int
}

// EstimateTokenizer approximates token counts without model-specific
// vocabularies (roughly 4 characters per token). Used as a fallback when
// an exact tokenizer is unavailable for the configured model.
type EstimateTokenizer struct{}

// NewEstimateTokenizer creates an estimation-based tokenizer.
func NewEstimateTokenizer() *EstimateTokenizer {
	return &EstimateTokenizer{}
}

// CountTokens estimates tokens in a text string.
func (t *EstimateTokenizer) CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// CountMessageTokens estimates tokens in a single message, including a
// small per-message framing overhead.
func (t *EstimateTokenizer) CountMessageTokens(msg Message) int {
	total := 4 // role + framing overhead
	total += t.CountTokens(msg.Content)
	total += t.CountTokens(msg.Name)
	for _, tc := range msg.ToolCalls {
		total += t.CountTokens(tc.Name)
		total += t.CountTokens(string(tc.Arguments))
	}
	return total
}

// CountMessagesTokens estimates tokens across a message slice.
func (t *EstimateTokenizer) CountMessagesTokens(msgs []Message) int {
	total := 3 // conversation-end overhead
	for _, m := range msgs {
		total += t.CountMessageTokens(m)
	}
	return total
}
