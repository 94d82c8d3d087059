package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseSections parses a generator response expected to be strict JSON with
// summary, top_skills and experience_highlights keys. Code fences and other
// chat framing are stripped before parsing.
func ParseSections(raw string) (*ResumeSections, error) {
	cleaned := ExtractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse resume sections: %w", err)
	}

	return &ResumeSections{
		Summary:    coerceString(data["summary"]),
		TopSkills:  coerceStringList(data["top_skills"]),
		Highlights: coerceStringList(data["experience_highlights"]),
	}, nil
}

// ExtractJSON strips markdown code fences and surrounding backticks that
// models tend to wrap JSON payloads in.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s := coerceString(v); s != "" {
			return []string{s}
		}
		return nil
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			result = append(result, s)
		}
	}
	return result
}
