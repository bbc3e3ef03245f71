// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves the model provider credential. A key is taken
// from a file under the secrets directory (the file name is the key name,
// the trimmed contents the value) and otherwise from the environment,
// which may be populated from a .env file.
//
// Supported key files: gemini-api-key, anthropic-api-key.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// LoadEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// APIKey returns the credential for provider, preferring the secrets
// directory over the environment. It returns "" when none is configured or
// the provider needs no key.
func APIKey(p types.Provider, dir string) (string, error) {
	if !p.NeedsAPIKey() {
		return "", nil
	}
	keys, err := Load(dir)
	if err != nil {
		return "", err
	}
	if v := keys[p.KeySecret()]; v != "" {
		return v, nil
	}
	return strings.TrimSpace(os.Getenv(p.KeyEnv())), nil
}
