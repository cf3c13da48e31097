// Package metrics provides Prometheus instrumentation for sandbox
// executions, LLM calls and agent steps. Internal only.
package metrics
