package genpipe

import (
	"fmt"
	"strings"
)

// Loose accessors for model payloads. The schema layer already guarantees
// shape on the happy path; these keep validators total on anything else.

func StringAt(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func SliceAt(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	v, ok := m[key].([]any)
	if !ok {
		return nil
	}
	return v
}

func MapsAt(m map[string]any, key string) []map[string]any {
	raw := SliceAt(m, key)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if mm, ok := item.(map[string]any); ok {
			out = append(out, mm)
		}
	}
	return out
}

func StringsAt(m map[string]any, key string) []string {
	raw := SliceAt(m, key)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s := strings.TrimSpace(fmt.Sprint(item))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
