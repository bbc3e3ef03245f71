// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// requestTimeout bounds a single Anthropic call; long consolidation
// prompts can take minutes.
const requestTimeout = 5 * time.Minute

// NewBackend builds the Backend for cfg.Provider.
func NewBackend(ctx context.Context, cfg types.ModelConfig, apiKey string) (Backend, error) {
	switch cfg.Provider {
	case types.ProviderGemini:
		return NewGemini(ctx, apiKey, cfg.Name)
	case types.ProviderAnthropic:
		return &AnthropicBackend{
			APIKey: apiKey,
			Client: &http.Client{Timeout: requestTimeout},
		}, nil
	case types.ProviderOllama:
		return NewOllama(cfg.Name, cfg.BaseURL, true)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
