// Package handlers implements the HTTP handlers for the runtime API.
//
// Endpoints:
//
//	POST   /v1/exec                  one-shot sandbox evaluation
//	POST   /v1/sessions              create a persistent session
//	POST   /v1/sessions/{id}/exec    execute code in a session
//	GET    /v1/sessions/{id}/state   snapshot the session state
//	DELETE /v1/sessions/{id}         discard a session
//	POST   /v1/run                   run an agent task to completion
//	GET    /health, /healthz, /ready liveness and readiness probes
package handlers
