// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/submission-analyzer/internal/httputil"
	"github.com/pdiddy/submission-analyzer/pkg/types"
)

func withAnthropicServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	orig := anthropicAPIURL
	anthropicAPIURL = srv.URL
	t.Cleanup(func() { anthropicAPIURL = orig })
}

func TestAnthropicBackend_Generate(t *testing.T) {
	var got anthropicRequest
	withAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"a\":"},{"type":"text","text":"1}"}],"stop_reason":"end_turn"}`))
	})

	b := &AnthropicBackend{APIKey: "sk-test"}
	text, err := b.Generate(context.Background(), Request{
		Prompt:      "analyze",
		Model:       "claude-test",
		Temperature: 0.2,
		MaxTokens:   512,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	assert.Equal(t, jsonSystemPrompt, got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "analyze", got.Messages[0].Content)
}

func TestAnthropicBackend_DefaultsMaxTokens(t *testing.T) {
	var got anthropicRequest
	withAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	})

	b := &AnthropicBackend{APIKey: "k"}
	_, err := b.Generate(context.Background(), Request{Prompt: "p", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, 4096, got.MaxTokens)
	assert.Empty(t, got.System)
}

func TestAnthropicBackend_StatusError(t *testing.T) {
	withAnthropicServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate_limit"}`))
	})

	b := &AnthropicBackend{APIKey: "k"}
	_, err := b.Generate(context.Background(), Request{Prompt: "p", Model: "m"})
	var se *httputil.StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.RateLimited())
}

func TestAnthropicBackend_NoText(t *testing.T) {
	withAnthropicServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"content":[],"stop_reason":"max_tokens"}`))
	})

	b := &AnthropicBackend{APIKey: "k"}
	_, err := b.Generate(context.Background(), Request{Prompt: "p", Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(context.Background(), types.ModelConfig{Provider: types.ProviderAnthropic, Name: "m"}, "k")
	require.NoError(t, err)
	assert.IsType(t, &AnthropicBackend{}, b)

	b, err = NewBackend(context.Background(), types.ModelConfig{Provider: types.ProviderOllama, Name: "llama3"}, "")
	require.NoError(t, err)
	assert.IsType(t, &LangChainBackend{}, b)

	_, err = NewBackend(context.Background(), types.ModelConfig{Provider: "bogus"}, "")
	assert.Error(t, err)
}

func TestParamsFor(t *testing.T) {
	cfg := types.ModelConfig{Name: "m", MaxOutputTokens: 100, MaxRetries: 4, RetryDelay: 5}
	p := ParamsFor(cfg, 0.3)
	assert.Equal(t, Params{Model: "m", Temperature: 0.3, MaxTokens: 100, MaxRetries: 4, RetryDelay: 5}, p)
}
