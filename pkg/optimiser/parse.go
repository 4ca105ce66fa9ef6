package optimiser

import (
	"fmt"
	"strconv"
	"strings"

	"prompt-optimiser-be/pkg/apperr"
)

// ParseCritique reads the fields the workflow consumes from an extracted object.
// Question ids must be present and unique; everything else is best effort.
func ParseCritique(obj map[string]any) (*Critique, error) {
	rawQuestions, ok := obj["questions"].([]any)
	if !ok {
		return nil, apperr.Extraction("critique has no questions array")
	}

	c := &Critique{
		OverallAssessment: stringField(obj, "overallAssessment"),
		Concerns:          stringList(obj["concerns"]),
		Questions:         make([]Question, 0, len(rawQuestions)),
	}

	seen := make(map[string]struct{}, len(rawQuestions))
	for i, item := range rawQuestions {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, apperr.Extraction(fmt.Sprintf("question %d is not an object", i))
		}
		id := scalarString(m["id"])
		if id == "" {
			return nil, apperr.Extraction(fmt.Sprintf("question %d has no id", i))
		}
		if _, dup := seen[id]; dup {
			return nil, apperr.Extraction(fmt.Sprintf("duplicate question id %q", id))
		}
		seen[id] = struct{}{}

		c.Questions = append(c.Questions, Question{
			ID:       id,
			Question: stringField(m, "question"),
			Why:      stringField(m, "why"),
			Category: stringField(m, "category"),
		})
	}
	return c, nil
}

// ParseResult reads a generation object. All fields are optional.
func ParseResult(obj map[string]any) *Result {
	return &Result{
		GeneratedPrompt: stringField(obj, "generatedPrompt"),
		Assumptions:     stringList(obj["assumptions"]),
		Structure:       stringList(obj["structure"]),
		Suggestions:     stringList(obj["suggestions"]),
		Summary:         stringField(obj, "summary"),
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// stringList keeps string items and flattens {title/text/description} objects,
// which some models emit for list entries.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			for _, key := range []string{"text", "title", "description", "suggestion"} {
				if s := strings.TrimSpace(stringField(t, key)); s != "" {
					out = append(out, s)
					break
				}
			}
		}
	}
	return out
}
