package providers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeflow-ai/codeflow/llm"
	"github.com/codeflow-ai/codeflow/types"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      types.ErrorCode
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, types.ErrAuthentication, false},
		{"forbidden", http.StatusForbidden, types.ErrAuthentication, false},
		{"rate limited", http.StatusTooManyRequests, types.ErrRateLimited, true},
		{"bad request", http.StatusBadRequest, types.ErrInvalidRequest, false},
		{"bad gateway", http.StatusBadGateway, types.ErrUpstreamError, true},
		{"gateway timeout", http.StatusGatewayTimeout, types.ErrUpstreamTimeout, true},
		{"teapot", http.StatusTeapot, types.ErrUpstreamError, false},
		{"internal", http.StatusInternalServerError, types.ErrUpstreamError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(tt.status, "boom", "openai")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, "openai", err.Provider)
		})
	}
}

func TestReadErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "openai error shape",
			body: `{"error": {"message": "invalid key", "type": "auth_error"}}`,
			want: "invalid key (type: auth_error)",
		},
		{
			name: "message without type",
			body: `{"error": {"message": "nope"}}`,
			want: "nope",
		},
		{
			name: "raw text fallback",
			body: "plain failure\n",
			want: "plain failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadErrorMessage(strings.NewReader(tt.body)))
		})
	}
}

func TestChooseModel(t *testing.T) {
	assert.Equal(t, "from-req", ChooseModel(&llm.ChatRequest{Model: "from-req"}, "default", "fallback"))
	assert.Equal(t, "default", ChooseModel(&llm.ChatRequest{}, "default", "fallback"))
	assert.Equal(t, "fallback", ChooseModel(&llm.ChatRequest{}, "", "fallback"))
}

func TestWireConversionRoundTrip(t *testing.T) {
	msgs := []types.Message{
		types.NewSystemMessage("be useful"),
		types.NewUserMessage("hello"),
	}
	wire := ToWireMessages(msgs)
	assert.Len(t, wire, 2)
	assert.Equal(t, "system", wire[0].Role)
	assert.Equal(t, "hello", wire[1].Content)

	resp := FromWireResponse(WireResponse{
		ID:    "cmpl-1",
		Model: "gpt-4o-mini",
		Choices: []WireChoice{{
			Index:        0,
			FinishReason: "stop",
			Message:      &WireMessage{Role: "assistant", Content: "hi there"},
		}},
		Usage: &WireUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
	}, "openai")

	assert.Equal(t, "hi there", resp.FirstText())
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}
