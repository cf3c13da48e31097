package agent

import (
	"context"
	"time"
)

// Step is the record of one loop iteration: what the model wrote, what
// the sandbox did with it, and what went back to the model.
type Step struct {
	RunID       string        `json:"run_id"`
	Index       int           `json:"index"`
	Reply       string        `json:"reply"`
	Code        string        `json:"code,omitempty"`
	Value       string        `json:"value,omitempty"`
	Logs        string        `json:"logs,omitempty"`
	Error       string        `json:"error,omitempty"`
	Observation string        `json:"observation,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

// StepStore persists step records. Implemented by agent/persistence.
type StepStore interface {
	SaveStep(ctx context.Context, step *Step) error
}
