// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// LangChainBackend sends prompts through a langchaingo model. It serves
// the gemini and ollama providers.
type LangChainBackend struct {
	provider types.Provider
	llm      llms.Model
}

// NewGemini returns a backend for the Google Generative AI API.
func NewGemini(ctx context.Context, apiKey, model string) (*LangChainBackend, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing gemini client: %w", err)
	}
	return &LangChainBackend{provider: types.ProviderGemini, llm: llm}, nil
}

// NewOllama returns a backend for a local Ollama server. When jsonFormat is
// set the server constrains every answer to JSON.
func NewOllama(model, baseURL string, jsonFormat bool) (*LangChainBackend, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, ollama.WithServerURL(baseURL))
	}
	if jsonFormat {
		opts = append(opts, ollama.WithFormat("json"))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing ollama client: %w", err)
	}
	return &LangChainBackend{provider: types.ProviderOllama, llm: llm}, nil
}

// Generate implements Backend.
func (b *LangChainBackend) Generate(ctx context.Context, req Request) (string, error) {
	opts := []llms.CallOption{
		llms.WithModel(req.Model),
		llms.WithTemperature(req.Temperature),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, b.llm, req.Prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", b.provider, err)
	}
	return text, nil
}
