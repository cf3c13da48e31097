// Package interp implements the code-execution sandbox at the heart of
// codeflow: model-generated Lua snippets are evaluated in a fresh, isolated
// environment per call, under an explicit capability table, a module
// allow-list, a wall-clock budget, and bounded output capture. A Session
// threads one persistent mutable state object across successive calls.
//
// The sandbox is a language-level capability restriction, not OS-grade
// isolation: a determined attacker with an escape exploit in the embedded
// interpreter is outside its threat model.
package interp
