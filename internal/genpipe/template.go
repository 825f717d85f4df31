package genpipe

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// RenderTemplate substitutes {{name}} placeholders from vars. A placeholder
// with no matching var is an error, never silently left in the prompt.
func RenderTemplate(tmpl string, vars map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("template has unknown placeholders: %s", strings.Join(dedupe(missing), ", "))
	}
	return out, nil
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// FeedbackBlock formats failed-check messages for injection into a retry
// prompt. Empty input yields an empty string so first attempts stay clean.
func FeedbackBlock(messages []string) string {
	if len(messages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("The previous attempt failed these checks:\n")
	for _, m := range messages {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(m))
		b.WriteString("\n")
	}
	b.WriteString("Produce a corrected version that passes every check.")
	return b.String()
}
