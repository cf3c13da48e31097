package interp

import "sync"

// PrintOutputsKey is the reserved state key under which the evaluator
// stores the (truncated) captured output of the most recent call. The key
// is cleared at the start of every call, so it only ever reflects that
// call's output.
const PrintOutputsKey = "print_outputs"

// State is the persistent mutable variable map owned by exactly one
// Session. It lives for the session's lifetime and is shared by reference
// with each call's sandbox environment, so in-code mutation is visible to
// the caller after the call returns. State is never persisted by the
// runtime; callers that need durability serialize Snapshot themselves.
type State struct {
	mu   sync.RWMutex
	vars map[string]any
}

// NewState creates an empty state map.
func NewState() *State {
	return &State{vars: make(map[string]any)}
}

// Get returns the value bound to name.
func (s *State) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	return v, ok
}

// Set binds name to value.
func (s *State) Set(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
}

// Delete removes a binding.
func (s *State) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vars, name)
}

// Merge performs a right-biased shallow merge: keys in extra overwrite
// existing keys of the same name.
func (s *State) Merge(extra map[string]any) {
	if len(extra) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range extra {
		s.vars[k] = v
	}
}

// Snapshot returns a shallow copy of the current bindings.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Len returns the number of bindings.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vars)
}
