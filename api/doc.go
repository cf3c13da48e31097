// Package api assembles the HTTP surface of the runtime: sandbox sessions,
// one-shot evaluation, agent runs, and health probes. Handlers live in
// api/handlers; this package provides the router and middleware.
package api
