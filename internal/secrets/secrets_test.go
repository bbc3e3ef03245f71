// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "gemini-api-key", "  gk_abc123  \n")
				writeFile(t, dir, "anthropic-api-key", "ak_xyz789")
				return dir
			},
			want: map[string]string{
				"gemini-api-key":    "gk_abc123",
				"anthropic-api-key": "ak_xyz789",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "gemini-api-key", "gk_real")
				return dir
			},
			want: map[string]string{
				"gemini-api-key": "gk_real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "ak_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "ak_123",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	// The good file should still be returned; the bad file is skipped with a warning.
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func TestAPIKey(t *testing.T) {
	t.Run("secrets file wins over environment", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "gemini-api-key", "from-file\n")
		t.Setenv("GEMINI_API_KEY", "from-env")

		got, err := APIKey(types.ProviderGemini, dir)
		require.NoError(t, err)
		assert.Equal(t, "from-file", got)
	})

	t.Run("falls back to environment", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", " from-env ")
		got, err := APIKey(types.ProviderAnthropic, t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "from-env", got)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		got, err := APIKey(types.ProviderGemini, filepath.Join(t.TempDir(), "none"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "unused")
		got, err := APIKey(types.ProviderOllama, t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	writeFile(t, dir, ".env", "SUBMISSION_ANALYZER_TEST_A=from-dotenv\nSUBMISSION_ANALYZER_TEST_B=ignored\n")

	t.Setenv("SUBMISSION_ANALYZER_TEST_A", "")
	os.Unsetenv("SUBMISSION_ANALYZER_TEST_A")
	t.Setenv("SUBMISSION_ANALYZER_TEST_B", "already-set")

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-dotenv", os.Getenv("SUBMISSION_ANALYZER_TEST_A"))
	assert.Equal(t, "already-set", os.Getenv("SUBMISSION_ANALYZER_TEST_B"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
