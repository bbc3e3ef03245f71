// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/submission-analyzer/internal/httputil"
)

// anthropicAPIURL is the Messages API endpoint. Package-level var for test substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

const anthropicVersion = "2023-06-01"

// jsonSystemPrompt stands in for a JSON mode, which the Messages API lacks.
const jsonSystemPrompt = "Respond with a single JSON value and no text before or after it."

// AnthropicBackend calls the Anthropic Messages API directly.
type AnthropicBackend struct {
	APIKey string
	Client *http.Client
}

// anthropicRequest is the request body for the Messages API.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the response body from the Messages API.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Generate implements Backend. Non-2xx statuses surface as
// *httputil.StatusError so the client can tell rate limiting apart in logs.
func (b *AnthropicBackend) Generate(ctx context.Context, req Request) (string, error) {
	body := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = 4096
	}
	if req.JSON {
		body.System = jsonSystemPrompt
	}

	header := http.Header{}
	header.Set("x-api-key", b.APIKey)
	header.Set("anthropic-version", anthropicVersion)

	data, err := httputil.PostJSON(ctx, b.Client, anthropicAPIURL, header, body)
	if err != nil {
		return "", fmt.Errorf("calling Anthropic API: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decoding Anthropic response: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in Anthropic response (stop_reason %q)", resp.StopReason)
	}
	return sb.String(), nil
}
