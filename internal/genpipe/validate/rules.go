// Package validate holds the pure rule families applied to generated
// payloads. Every rule returns an independent pass/fail result; callers run
// the full set so reviewers always see a complete report.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/coursegen/coursegen-backend/internal/domain"
)

// ExactCount checks got == want, naming both counts in the failure message.
func ExactCount(code, label string, got, want int) domain.ValidationResult {
	if got == want {
		return domain.ValidationResult{Code: code, Message: fmt.Sprintf("%s count is %d", label, got), Passed: true}
	}
	return domain.ValidationResult{
		Code:    code,
		Message: fmt.Sprintf("expected %d %s, got %d", want, label, got),
	}
}

// RangeCount checks min <= got <= max.
func RangeCount(code, label string, got, min, max int) domain.ValidationResult {
	if got >= min && got <= max {
		return domain.ValidationResult{Code: code, Message: fmt.Sprintf("%s count is %d", label, got), Passed: true}
	}
	return domain.ValidationResult{
		Code:    code,
		Message: fmt.Sprintf("expected between %d and %d %s, got %d", min, max, label, got),
	}
}

// LongerThan passes only when the trimmed text is strictly longer than min
// characters.
func LongerThan(code, label, text string, min int) domain.ValidationResult {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n > min {
		return domain.ValidationResult{Code: code, Message: fmt.Sprintf("%s length is %d", label, n), Passed: true}
	}
	return domain.ValidationResult{
		Code:    code,
		Message: fmt.Sprintf("%s must be longer than %d characters, got %d", label, min, n),
	}
}

// AtLeastLength passes when the trimmed text has at least min characters.
func AtLeastLength(code, label, text string, min int) domain.ValidationResult {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n >= min {
		return domain.ValidationResult{Code: code, Message: fmt.Sprintf("%s length is %d", label, n), Passed: true}
	}
	return domain.ValidationResult{
		Code:    code,
		Message: fmt.Sprintf("%s must be at least %d characters, got %d", label, min, n),
	}
}

// LeadingVerb checks that the text starts with one of the allowed action-verb
// stems. Comparison is case-insensitive after trimming leading whitespace.
func LeadingVerb(code, label, text string, allowed []string) domain.ValidationResult {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, verb := range allowed {
		v := strings.ToLower(strings.TrimSpace(verb))
		if v != "" && strings.HasPrefix(t, v) {
			return domain.ValidationResult{
				Code:    code,
				Message: fmt.Sprintf("%s starts with allowed verb %q", label, verb),
				Passed:  true,
			}
		}
	}
	return domain.ValidationResult{
		Code:    code,
		Message: fmt.Sprintf("%s %q does not start with an allowed action verb (%s)", label, strings.TrimSpace(text), strings.Join(allowed, ", ")),
	}
}

// MissingComponents returns the expected component tags absent from got,
// preserving expected order. Matching is case-insensitive.
func MissingComponents(expected, got []string) []string {
	have := make(map[string]bool, len(got))
	for _, g := range got {
		have[strings.ToUpper(strings.TrimSpace(g))] = true
	}
	var missing []string
	for _, e := range expected {
		key := strings.ToUpper(strings.TrimSpace(e))
		if key != "" && !have[key] {
			missing = append(missing, key)
		}
	}
	return missing
}
