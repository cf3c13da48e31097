// Package llm defines the provider abstraction the agent loop talks to:
// chat request/response shapes, a streaming channel contract, and
// cross-cutting wrappers such as client-side rate limiting. Concrete
// adapters live under llm/providers.
package llm
