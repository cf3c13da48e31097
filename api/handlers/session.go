package handlers

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codeflow-ai/codeflow/interp"
	"github.com/codeflow-ai/codeflow/types"
)

// DefaultMaxSessions bounds the number of live sessions per handler.
const DefaultMaxSessions = 128

// SessionHandler owns the live sandbox sessions exposed over HTTP.
type SessionHandler struct {
	logger      *zap.Logger
	baseOpts    []interp.SessionOption
	maxSessions int

	mu       sync.RWMutex
	sessions map[string]*interp.Session
}

// NewSessionHandler creates a handler. baseOpts apply to every session
// it creates; per-request imports are layered on top.
func NewSessionHandler(logger *zap.Logger, baseOpts ...interp.SessionOption) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		logger:      logger,
		baseOpts:    baseOpts,
		maxSessions: DefaultMaxSessions,
		sessions:    make(map[string]*interp.Session),
	}
}

// CreateSessionRequest is the body of POST /v1/sessions.
type CreateSessionRequest struct {
	AdditionalImports []string `json:"additional_imports,omitempty"`
}

// SessionInfo describes one live session.
type SessionInfo struct {
	SessionID         string   `json:"session_id"`
	AuthorizedImports []string `json:"authorized_imports"`
}

// ExecRequest is the body of an exec call.
type ExecRequest struct {
	Code      string         `json:"code"`
	Variables map[string]any `json:"variables,omitempty"`
}

// ExecResponse is the outcome of a successful exec call.
type ExecResponse struct {
	Value any    `json:"value"`
	Logs  string `json:"logs,omitempty"`
}

// HandleCreate creates a persistent session.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength > 0 {
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return
		}
	}

	h.mu.Lock()
	if len(h.sessions) >= h.maxSessions {
		h.mu.Unlock()
		WriteErrorMessage(w, types.ErrRateLimited, "session limit reached; delete a session first", h.logger)
		return
	}
	opts := h.baseOpts
	if len(req.AdditionalImports) > 0 {
		opts = append(append([]interp.SessionOption{}, h.baseOpts...),
			interp.WithAdditionalImports(req.AdditionalImports...))
	}
	session := interp.NewSession(opts...)
	h.sessions[session.ID()] = session
	h.mu.Unlock()

	h.logger.Info("session created", zap.String("session_id", session.ID()))
	WriteSuccess(w, SessionInfo{
		SessionID:         session.ID(),
		AuthorizedImports: session.AuthorizedImports(),
	})
}

// HandleExec executes code in an existing session.
func (h *SessionHandler) HandleExec(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(r.PathValue("id"))
	if !ok {
		writeSessionNotFound(w, r.PathValue("id"))
		return
	}

	var req ExecRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Code == "" {
		WriteErrorMessage(w, types.ErrInvalidRequest, "code is required", h.logger)
		return
	}

	value, logs, err := session.Execute(r.Context(), req.Code, req.Variables)
	if err != nil {
		writeExecError(w, err, logs, h.logger)
		return
	}
	WriteSuccess(w, ExecResponse{Value: value, Logs: logs})
}

// HandleState returns a snapshot of the session's persistent state.
func (h *SessionHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(r.PathValue("id"))
	if !ok {
		writeSessionNotFound(w, r.PathValue("id"))
		return
	}
	WriteSuccess(w, session.State().Snapshot())
}

// HandleDelete discards a session and its state.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.mu.Lock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		writeSessionNotFound(w, id)
		return
	}
	h.logger.Info("session deleted", zap.String("session_id", id))
	WriteSuccess(w, map[string]string{"session_id": id})
}

// HandleExecOnce evaluates code in a throwaway session.
func (h *SessionHandler) HandleExecOnce(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExecRequest
		AdditionalImports []string `json:"additional_imports,omitempty"`
	}
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Code == "" {
		WriteErrorMessage(w, types.ErrInvalidRequest, "code is required", h.logger)
		return
	}

	opts := append(append([]interp.SessionOption{}, h.baseOpts...),
		interp.WithAdditionalImports(req.AdditionalImports...))
	session := interp.NewSession(opts...)

	value, logs, err := session.Execute(r.Context(), req.Code, req.Variables)
	if err != nil {
		writeExecError(w, err, logs, h.logger)
		return
	}
	WriteSuccess(w, ExecResponse{Value: value, Logs: logs})
}

func (h *SessionHandler) lookup(id string) (*interp.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

func writeSessionNotFound(w http.ResponseWriter, id string) {
	WriteJSON(w, http.StatusNotFound, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    "SESSION_NOT_FOUND",
			Message: "no session with id " + id,
		},
		Timestamp: time.Now(),
	})
}

// writeExecError reports a sandbox fault together with whatever output
// the code produced before failing.
func writeExecError(w http.ResponseWriter, err error, logs string, logger *zap.Logger) {
	info := &ErrorInfo{
		Code:    string(types.ErrInternalError),
		Message: err.Error(),
	}
	if ie, ok := err.(*interp.InterpreterError); ok {
		info.Code = string(ie.Code())
		info.Message = ie.Message
		info.Line = ie.Line
	}
	if logger != nil {
		logger.Warn("exec failed", zap.String("code", info.Code), zap.String("message", info.Message))
	}
	WriteJSON(w, httpStatusFor(types.ErrorCode(info.Code)), Response{
		Success:   false,
		Error:     info,
		Data:      ExecResponse{Logs: logs},
		Timestamp: time.Now(),
	})
}
