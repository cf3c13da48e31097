package interp

import (
	"fmt"
	"strings"
	"sync"
)

// Capturer buffers print-style output produced during one execution call.
// One capturer is constructed per call and drained once after the call
// completes or faults. Record never fails the execution: capture problems
// are swallowed.
type Capturer struct {
	mu  sync.Mutex
	buf strings.Builder
}

// NewCapturer creates an empty capturer.
func NewCapturer() *Capturer {
	return &Capturer{}
}

// Record appends text to the buffer.
func (c *Capturer) Record(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// strings.Builder never returns an error; the signature swallow is
	// deliberate so a capture problem can never abort the execution.
	_, _ = c.buf.WriteString(text)
}

// Drain returns the buffered text and resets the buffer. Each execution
// uses a freshly constructed capturer and drains it exactly once.
func (c *Capturer) Drain() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.buf.String()
	c.buf.Reset()
	return out
}

// Len returns the current buffered length in bytes.
func (c *Capturer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Len()
}

// TruncateMiddle bounds s to roughly max characters. Content up to max is
// returned unchanged. Longer content keeps the first max/2 and last max/2
// characters with a marker in between stating how many characters were cut.
// Characters means runes: the cut points never split a multi-byte sequence.
func TruncateMiddle(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	half := max / 2
	cut := len(runes) - 2*half
	return fmt.Sprintf("%s\n..._Content truncated: %d characters elided_...\n%s",
		string(runes[:half]), cut, string(runes[len(runes)-half:]))
}
