// Package agent implements the CodeAct execution loop: the model writes
// code, the sandbox runs it, and the observation (result plus captured
// output) is fed back until the model produces a final answer or the step
// budget runs out.
package agent
