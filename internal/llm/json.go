package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a surrounding markdown code fence from a completion.
// Models occasionally wrap JSON in ```json blocks even in JSON mode.
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// drop the language tag line ("json", "JSON", or empty)
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeObject unmarshals a completion into v after stripping fences.
// Malformed JSON is a hard failure; callers decide whether to fall back.
func DecodeObject(content string, v any) error {
	if err := json.Unmarshal([]byte(StripFences(content)), v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// ParseArray extracts a []T from a completion that may be a bare JSON array
// or an object wrapping the array under one of the given keys. Falls back to
// the first non-empty array value when no key matches.
func ParseArray[T any](content string, keys []string) ([]T, error) {
	clean := StripFences(content)

	var direct []T
	if err := json.Unmarshal([]byte(clean), &direct); err == nil && len(direct) > 0 {
		return direct, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &wrapped); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	for _, key := range keys {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
			return items, nil
		}
	}

	for _, raw := range wrapped {
		var items []T
		if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
			return items, nil
		}
	}

	return nil, fmt.Errorf("no items found in response")
}
