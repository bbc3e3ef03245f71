// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package model obtains answers from a generative-text API. The Client
// owns the retry policy: a bounded number of attempts with a fixed delay,
// where a malformed answer costs an attempt exactly like a failed call.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/submission-analyzer/internal/httputil"
	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// Failure kinds surfaced to callers once the retry budget is spent.
var (
	// ErrAPIUnavailable means no attempt produced an answer.
	ErrAPIUnavailable = errors.New("model API unavailable")

	// ErrInvalidResponseFormat means the API answered but never with
	// usable output.
	ErrInvalidResponseFormat = errors.New("invalid response format")
)

// Backend abstracts one provider API so tests can supply a stub. Each call
// sends one prompt and returns the raw answer text. Per Strategy pattern.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is what a Backend sends to the provider.
type Request struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int

	// JSON asks the provider for a JSON answer where it supports that.
	JSON bool
}

// Params are the per-call generation settings and retry budget.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// MaxRetries is the total number of attempts, not extra ones.
	MaxRetries int

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration

	// RequireObject rejects well-formed JSON that is not an object.
	RequireObject bool
}

// ParamsFor derives Params from a ModelConfig at the given temperature.
func ParamsFor(cfg types.ModelConfig, temperature float64) Params {
	return Params{
		Model:       cfg.Name,
		Temperature: temperature,
		MaxTokens:   cfg.MaxOutputTokens,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
	}
}

// Logger receives attempt diagnostics.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// ExhaustedError is returned when every attempt failed. It matches Kind
// (ErrAPIUnavailable or ErrInvalidResponseFormat) and the last underlying
// failure under errors.Is / errors.As.
type ExhaustedError struct {
	Kind     error
	Attempts int

	// LastBody is the most recent unusable answer, if any arrived.
	LastBody string

	Err error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// errEmptyResponse marks a free-text answer with no content.
var errEmptyResponse = errors.New("empty response")

// logBodyLimit truncates bodies written to the log.
const logBodyLimit = 500

// sleep waits d or until ctx is done. Tests replace it to observe delays.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client issues requests through a Backend under the retry policy.
type Client struct {
	backend Backend
	log     Logger
}

// NewClient returns a Client. A nil log discards diagnostics.
func NewClient(backend Backend, log Logger) *Client {
	if log == nil {
		log = nopLogger{}
	}
	return &Client{backend: backend, log: log}
}

// RequestStructured sends prompt and returns the answer as one JSON value.
// Transport failures and unparseable answers share the MaxRetries budget.
func (c *Client) RequestStructured(ctx context.Context, prompt string, p Params) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, prompt, p, true, func(text string) error {
		v, err := ParseJSON(text, p.RequireObject)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RequestText sends prompt and returns a free-text answer with any
// surrounding Markdown code fence removed. An empty answer counts as a
// malformed response.
func (c *Client) RequestText(ctx context.Context, prompt string, p Params) (string, error) {
	var out string
	err := c.do(ctx, prompt, p, false, func(text string) error {
		text = StripCodeFence(text)
		if text == "" {
			return errEmptyResponse
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

type failureKind int

const (
	failTransport failureKind = iota
	failFormat
)

// attemptFailure is the single retryable failure shape used inside the
// retry loop.
type attemptFailure struct {
	kind failureKind
	err  error
	body string
}

func (c *Client) do(ctx context.Context, prompt string, p Params, jsonMode bool, accept func(string) error) error {
	attempts := p.MaxRetries
	if attempts <= 0 {
		attempts = types.DefaultMaxRetries
	}

	req := Request{
		Prompt:      prompt,
		Model:       p.Model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		JSON:        jsonMode,
	}

	var (
		last     attemptFailure
		lastBody string
		answered bool
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.RetryDelay); err != nil {
				return fmt.Errorf("waiting to retry: %w", err)
			}
		}

		start := time.Now()
		text, err := c.backend.Generate(ctx, req)
		elapsed := time.Since(start).Round(time.Millisecond)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("attempt %d: %w", attempt, ctxErr)
			}
			last = attemptFailure{kind: failTransport, err: err}
			var se *httputil.StatusError
			if errors.As(err, &se) && se.RateLimited() {
				c.log.Warn("attempt %d/%d rate limited after %s: %v", attempt, attempts, elapsed, err)
			} else {
				c.log.Warn("attempt %d/%d failed after %s: %v", attempt, attempts, elapsed, err)
			}
			continue
		}

		if err := accept(text); err != nil {
			last = attemptFailure{kind: failFormat, err: err, body: text}
			lastBody = last.body
			answered = true
			c.log.Warn("attempt %d/%d returned unusable output after %s: %v; body: %s",
				attempt, attempts, elapsed, err, truncate(text, logBodyLimit))
			continue
		}

		c.log.Info("attempt %d/%d succeeded in %s", attempt, attempts, elapsed)
		return nil
	}

	kind := ErrAPIUnavailable
	if answered {
		kind = ErrInvalidResponseFormat
	}
	c.log.Error("giving up after %d attempt(s): %v", attempts, last.err)
	return &ExhaustedError{
		Kind:     kind,
		Attempts: attempts,
		LastBody: lastBody,
		Err:      last.err,
	}
}

// truncate shortens s to at most n bytes, marking the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// StripCodeFence removes a Markdown code fence wrapping the whole text,
// such as ```markdown ... ``` or ```json ... ```, and trims whitespace.
func StripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 && !strings.ContainsAny(t[:nl], " \t") {
		// Drop the info string (e.g. "markdown") on the opening line.
		t = t[nl+1:]
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}
