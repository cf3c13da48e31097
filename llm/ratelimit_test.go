package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeflow-ai/codeflow/types"
)

type stubProvider struct {
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	s.calls++
	return &ChatResponse{
		Model: "stub-model",
		Choices: []ChatChoice{{
			Message: types.NewAssistantMessage("ok"),
		}},
	}, nil
}

func (s *stubProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk)
	close(ch)
	return ch, nil
}

func (s *stubProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return &HealthStatus{Healthy: true}, nil
}

func TestRateLimitedProvider_PassesThrough(t *testing.T) {
	stub := &stubProvider{}
	p := NewRateLimitedProvider(stub, 100, 10, nil)

	resp, err := p.Completion(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.FirstText())
	assert.Equal(t, "stub", p.Name())
	assert.Equal(t, 1, stub.calls)
}

func TestRateLimitedProvider_CanceledWait(t *testing.T) {
	stub := &stubProvider{}
	// one token, then a very slow refill; the second call must wait
	p := NewRateLimitedProvider(stub, 0.001, 1, nil)

	ctx := context.Background()
	_, err := p.Completion(ctx, &ChatRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = p.Completion(ctx, &ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, stub.calls, "canceled wait must not reach the upstream")
}

func TestRateLimitedProvider_HealthCheckBypassesLimiter(t *testing.T) {
	stub := &stubProvider{}
	p := NewRateLimitedProvider(stub, 0.001, 1, nil)

	_, err := p.Completion(context.Background(), &ChatRequest{})
	require.NoError(t, err)

	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}
