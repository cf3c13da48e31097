// Package providers holds the shared wire types and helpers for concrete
// LLM adapters: the OpenAI-compatible request/response format, HTTP error
// mapping, and message conversions.
package providers
