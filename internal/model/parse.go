// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	errNoJSON    = errors.New("response contains no valid JSON")
	errNotObject = errors.New("response JSON is not an object")
)

// fencePattern matches a fenced code block, optionally tagged json.
var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ParseJSON extracts a single JSON value from a model answer. Models often
// wrap the value in prose or a code fence, so three readings are tried in
// order: the whole trimmed text, each fenced block, and each balanced
// {...} span. With requireObject set, only a JSON object is accepted.
func ParseJSON(text string, requireObject bool) (json.RawMessage, error) {
	sawJSON := false
	for _, c := range candidates(text) {
		if !json.Valid([]byte(c)) {
			continue
		}
		sawJSON = true
		if requireObject && !strings.HasPrefix(c, "{") {
			continue
		}
		return json.RawMessage(c), nil
	}
	if sawJSON {
		return nil, errNotObject
	}
	return nil, errNoJSON
}

func candidates(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	out := []string{trimmed}
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return append(out, balancedObjects(text)...)
}

// balancedObjects returns every top-level {...} span of text, tracking
// string literals so braces inside strings do not count.
func balancedObjects(text string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, text[start:i+1])
			}
		}
	}
	return out
}
