// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP plumbing shared by model backends that
// talk to a provider API directly.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of a failed response body is kept on a
// StatusError.
const maxErrorBody = 2048

// StatusError reports a non-2xx response from a provider API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.RateLimited() {
		return fmt.Sprintf("rate limited (HTTP %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the provider signalled throttling (HTTP 429,
// or 529 which Anthropic uses for overload).
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == 529
}

// PostJSON marshals payload, POSTs it to url with the given headers and
// returns the response body. A non-2xx status yields a *StatusError with
// the body drained and truncated; transport failures are returned as-is.
// No retrying happens here; the caller owns the retry policy.
func PostJSON(ctx context.Context, client *http.Client, url string, header http.Header, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
