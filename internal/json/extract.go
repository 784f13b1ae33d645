// Package json extracts JSON objects from text that may wrap them in
// commentary or markdown fences. Models do not always honor structured
// output, so callers use this as a tolerant fallback.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Extract returns the first valid JSON object found in text.
// It tries, in order: the whole text, the text with markdown fences
// stripped, and the span between the first '{' and last '}'.
// Only objects are handled, not arrays.
func Extract(text string) (string, error) {
	candidate := stripFences(text)

	if isObject(candidate) {
		return candidate, nil
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start != -1 && end > start {
		span := candidate[start : end+1]
		if isObject(span) {
			return span, nil
		}
	}

	preview := text
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("no JSON object in text: %q", preview)
}

// Unmarshal extracts a JSON object from text and decodes it into v.
func Unmarshal(text string, v any) error {
	span, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return fmt.Errorf("decoding extracted JSON: %w", err)
	}
	return nil
}

func isObject(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var v any
	return json.Unmarshal([]byte(s), &v) == nil
}

// stripFences removes a leading ```json or ``` fence and a trailing ```.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}
	return trimmed
}
