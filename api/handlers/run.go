package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/codeflow-ai/codeflow/agent"
	"github.com/codeflow-ai/codeflow/types"
)

// AgentFactory builds a fresh agent for one run. Each run gets its own
// sandbox session, so concurrent requests do not share state.
type AgentFactory func() *agent.CodeActAgent

// RunHandler exposes the reason/execute loop over HTTP.
type RunHandler struct {
	newAgent AgentFactory
	logger   *zap.Logger
}

// NewRunHandler creates a handler around an agent factory.
func NewRunHandler(newAgent AgentFactory, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{newAgent: newAgent, logger: logger}
}

// RunRequest is the body of POST /v1/run.
type RunRequest struct {
	Task string `json:"task"`
}

// HandleRun runs one task to completion and returns the full run record.
func (h *RunHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Task == "" {
		WriteErrorMessage(w, types.ErrInvalidRequest, "task is required", h.logger)
		return
	}

	result, err := h.newAgent().Run(r.Context(), req.Task)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, result)
}
