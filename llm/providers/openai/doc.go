// Package openai implements the Provider interface against the OpenAI
// chat-completions API and any endpoint speaking the same dialect
// (set BaseURL to point elsewhere).
package openai
