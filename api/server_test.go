package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeflow-ai/codeflow/agent"
	"github.com/codeflow-ai/codeflow/api/handlers"
	"github.com/codeflow-ai/codeflow/interp"
	"github.com/codeflow-ai/codeflow/testutil/mocks"
)

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *handlers.ErrorInfo `json:"error"`
}

func newTestRouter(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if cfg.Sessions == nil {
		cfg.Sessions = handlers.NewSessionHandler(nil,
			interp.WithTimeout(2*time.Second))
	}
	if cfg.Health == nil {
		cfg.Health = handlers.NewHealthHandler(nil)
	}
	cfg.Version = "test"
	return NewRouter(ctx, cfg)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") != "" && rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func TestRouter_SessionLifecycle(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})

	rec, env := doJSON(t, router, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info handlers.SessionInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	require.NotEmpty(t, info.SessionID)
	assert.Contains(t, info.AuthorizedImports, "string")

	execPath := fmt.Sprintf("/v1/sessions/%s/exec", info.SessionID)

	rec, _ = doJSON(t, router, http.MethodPost, execPath,
		handlers.ExecRequest{Code: "state.x = 5"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = doJSON(t, router, http.MethodPost, execPath,
		handlers.ExecRequest{Code: "state.x + 1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var res handlers.ExecResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.EqualValues(t, 6, res.Value)

	rec, env = doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/v1/sessions/%s/state", info.SessionID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.EqualValues(t, 5, state["x"])

	rec, _ = doJSON(t, router, http.MethodDelete, "/v1/sessions/"+info.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = doJSON(t, router, http.MethodPost, execPath,
		handlers.ExecRequest{Code: "return 1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}

func TestRouter_ExecOnce(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})

	rec, env := doJSON(t, router, http.MethodPost, "/v1/exec",
		map[string]any{"code": "1 + 2"})
	require.Equal(t, http.StatusOK, rec.Code)
	var res handlers.ExecResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.EqualValues(t, 3, res.Value)
}

func TestRouter_ExecDenialAndSyntax(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})

	rec, env := doJSON(t, router, http.MethodPost, "/v1/exec",
		map[string]any{"code": `require("fs")`})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "CAPABILITY_DENIED", env.Error.Code)
	assert.Contains(t, env.Error.Message, `"fs"`)

	rec, env = doJSON(t, router, http.MethodPost, "/v1/exec",
		map[string]any{"code": "local = ="})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SYNTAX_FAULT", env.Error.Code)
}

func TestRouter_ExecFaultKeepsLogs(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})

	rec, env := doJSON(t, router, http.MethodPost, "/v1/exec",
		map[string]any{"code": "print(\"partial\")\nerror(\"boom\")"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "RUNTIME_FAULT", env.Error.Code)
	var res handlers.ExecResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Contains(t, res.Logs, "partial")
}

func TestRouter_ExecMissingCode(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})

	rec, env := doJSON(t, router, http.MethodPost, "/v1/exec", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

func TestRouter_Run(t *testing.T) {
	factory := func() *agent.CodeActAgent {
		provider := mocks.NewScriptedProvider(
			"```lua\nfinal_answer(\"done\")\n```",
		)
		return agent.New(provider, agent.Config{})
	}
	router := newTestRouter(t, RouterConfig{
		Run: handlers.NewRunHandler(factory, nil),
	})

	rec, env := doJSON(t, router, http.MethodPost, "/v1/run",
		handlers.RunRequest{Task: "finish immediately"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result agent.RunResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "done", result.Answer)
	require.Len(t, result.Steps, 1)
}

func TestRouter_RunMissingTask(t *testing.T) {
	router := newTestRouter(t, RouterConfig{
		Run: handlers.NewRunHandler(func() *agent.CodeActAgent {
			return agent.New(mocks.NewScriptedProvider(), agent.Config{})
		}, nil),
	})

	rec, env := doJSON(t, router, http.MethodPost, "/v1/run", handlers.RunRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

func TestRouter_HealthAndVersion(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test")
}

func TestRouter_ReadyReflectsProviderHealth(t *testing.T) {
	health := handlers.NewHealthHandler(nil)
	health.RegisterCheck(handlers.NewProviderHealthCheck(
		&mocks.FailingProvider{Err: fmt.Errorf("connection refused")}))
	router := newTestRouter(t, RouterConfig{Health: health})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestRouter_MiddlewareHeaders(t *testing.T) {
	router := newTestRouter(t, RouterConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_RateLimiter(t *testing.T) {
	router := newTestRouter(t, RouterConfig{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
