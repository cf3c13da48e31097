// Package tokenizer provides exact token counting for OpenAI-family
// models via tiktoken, with an estimation fallback for everything else.
package tokenizer
