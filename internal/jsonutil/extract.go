// Package jsonutil provides JSON extraction utilities for model output.
//
// Streamed tool inputs are accumulated from partial JSON deltas and
// occasionally arrive with stray text or markdown fences around the
// object; these helpers recover the JSON object from such payloads.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractObject finds and returns the JSON object portion of a string.
// It handles:
//  1. A pure JSON document - returned as-is
//  2. JSON wrapped in markdown code fences (```json ... ```)
//  3. A JSON object embedded in text - first '{' through last '}'
func ExtractObject(payload string) (json.RawMessage, error) {
	payload = stripMarkdownFences(payload)

	var test any
	if err := json.Unmarshal([]byte(payload), &test); err == nil {
		return json.RawMessage(payload), nil
	}

	start := strings.Index(payload, "{")
	if start != -1 {
		end := strings.LastIndex(payload, "}")
		if end > start {
			candidate := payload[start : end+1]
			if err := json.Unmarshal([]byte(candidate), &test); err == nil {
				return json.RawMessage(candidate), nil
			}
		}
	}

	preview := payload
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return nil, fmt.Errorf("no valid JSON object in %q", preview)
}

// NormalizeObject returns a valid JSON object for the payload: the
// payload itself when it already parses, an extracted object when one is
// embedded, or "{}" when the payload is empty.
func NormalizeObject(payload string) json.RawMessage {
	if strings.TrimSpace(payload) == "" {
		return json.RawMessage(`{}`)
	}
	if raw, err := ExtractObject(payload); err == nil {
		return raw
	}
	return json.RawMessage(`{}`)
}

func stripMarkdownFences(payload string) string {
	trimmed := strings.TrimSpace(payload)

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
