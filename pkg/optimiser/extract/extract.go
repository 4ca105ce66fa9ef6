// Package extract recovers a JSON object from free-form model output.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"prompt-optimiser-be/pkg/apperr"

	"github.com/tailscale/hujson"
)

const fence = "```"

var (
	// a bare label such as "json" or "JSON5" directly after the opening fence
	languageTag = regexp.MustCompile(`^[ \t]*[A-Za-z][A-Za-z0-9_+-]*[ \t]*(\r?\n|$)`)

	ErrNoJSON      = apperr.Extraction("no JSON found")
	ErrParseFailed = apperr.Extraction("parse failed")
)

// Extract parses the first JSON object found in raw.
// It tolerates code fences, surrounding prose and trailing commas. Errors carry only
// the failure category, never the raw text.
func Extract(raw string) (map[string]any, error) {
	text := unfence(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSON
	}

	cleaned, err := hujson.Standardize([]byte(text[start : end+1]))
	if err != nil {
		return nil, ErrParseFailed
	}

	var obj map[string]any
	if err := json.Unmarshal(cleaned, &obj); err != nil {
		return nil, ErrParseFailed
	}
	return obj, nil
}

// Into extracts and decodes raw into T.
func Into[T any](raw string) (*T, error) {
	obj, err := Extract(raw)
	if err != nil {
		return nil, err
	}
	return Decode[T](obj)
}

// Decode converts an extracted object into T.
func Decode[T any](obj map[string]any) (*T, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, ErrParseFailed
	}
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, ErrParseFailed
	}
	return &t, nil
}

// unfence returns the body of the first fenced block with its language tag removed.
// Text without a complete fence, or whose fence holds no object, is returned unchanged.
func unfence(text string) string {
	open := strings.Index(text, fence)
	if open == -1 {
		return text
	}
	rest := text[open+len(fence):]
	closing := strings.Index(rest, fence)
	if closing == -1 {
		return text
	}

	body := languageTag.ReplaceAllString(rest[:closing], "")
	if !strings.Contains(body, "{") {
		return text
	}
	return body
}
