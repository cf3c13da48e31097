package interp

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/codeflow-ai/codeflow/types"
)

// FaultKind labels the fault category of an InterpreterError.
type FaultKind string

const (
	// KindSyntax means the submitted code failed to parse.
	KindSyntax FaultKind = "syntax"
	// KindCapability means the code imported a non-allow-listed module.
	KindCapability FaultKind = "capability_denied"
	// KindTimeout means the wall-clock budget elapsed.
	KindTimeout FaultKind = "timeout"
	// KindRuntime covers every other fault raised during evaluation.
	KindRuntime FaultKind = "runtime"
)

// InterpreterError is the single error kind that crosses the sandbox
// boundary. Callers never need to distinguish further subtypes
// programmatically beyond Kind and message inspection.
type InterpreterError struct {
	Kind    FaultKind
	Message string
	// Line is the 1-based source line of the fault, or 0 when unknown.
	Line  int
	Cause error
}

// Error implements the error interface.
func (e *InterpreterError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("interpreter error (%s) at line %d: %s", e.Kind, e.Line, e.Message)
	}
	return fmt.Sprintf("interpreter error (%s): %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *InterpreterError) Unwrap() error { return e.Cause }

// Code maps the fault kind onto the runtime-wide error code taxonomy.
func (e *InterpreterError) Code() types.ErrorCode {
	switch e.Kind {
	case KindSyntax:
		return types.ErrSyntaxFault
	case KindCapability:
		return types.ErrCapabilityDenied
	case KindTimeout:
		return types.ErrTimeout
	default:
		return types.ErrRuntimeFault
	}
}

// newFault builds an InterpreterError, extracting a source line hint from
// the message when one is present.
func newFault(kind FaultKind, message string, cause error) *InterpreterError {
	return &InterpreterError{
		Kind:    kind,
		Message: message,
		Line:    extractLine(message),
		Cause:   cause,
	}
}

// Wrap normalizes an arbitrary error into an InterpreterError. Wrapping is
// idempotent: an already-normalized error is returned unchanged rather than
// nested.
func Wrap(err error) *InterpreterError {
	if err == nil {
		return nil
	}
	if ie, ok := err.(*InterpreterError); ok {
		return ie
	}
	return newFault(KindRuntime, err.Error(), err)
}

// chunkName is the name evaluated code is compiled under; fault positions
// are reported as "sandbox:<line>:".
const chunkName = "sandbox"

var linePattern = regexp.MustCompile(chunkName + `:(\d+):`)

func extractLine(message string) int {
	m := linePattern.FindStringSubmatch(message)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
