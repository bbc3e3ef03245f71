// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON_Success(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))

		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "hello", got["msg"])

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	header := http.Header{}
	header.Set("x-api-key", "secret")

	body, err := PostJSON(context.Background(), ts.Client(), ts.URL, header, map[string]string{"msg": "hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPostJSON_StatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		rateLimited bool
	}{
		{name: "too many requests", status: http.StatusTooManyRequests, rateLimited: true},
		{name: "overloaded", status: 529, rateLimited: true},
		{name: "server error", status: http.StatusInternalServerError, rateLimited: false},
		{name: "bad request", status: http.StatusBadRequest, rateLimited: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer ts.Close()

			_, err := PostJSON(context.Background(), ts.Client(), ts.URL, nil, struct{}{})
			require.Error(t, err)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, "nope", se.Body)
			assert.Equal(t, tt.rateLimited, se.RateLimited())
		})
	}
}

func TestPostJSON_TruncatesErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer ts.Close()

	_, err := PostJSON(context.Background(), ts.Client(), ts.URL, nil, struct{}{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Len(t, se.Body, maxErrorBody)
}

func TestPostJSON_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := PostJSON(ctx, ts.Client(), ts.URL, nil, struct{}{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
