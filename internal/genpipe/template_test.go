package genpipe

import (
	"strings"
	"testing"
)

func TestRenderTemplate(t *testing.T) {
	t.Parallel()

	t.Run("substitutes placeholders", func(t *testing.T) {
		out, err := RenderTemplate("Plan for {{title}} with {{total_lessons}} lessons", map[string]string{
			"title":         "Biology 101",
			"total_lessons": "12",
		})
		if err != nil {
			t.Fatalf("RenderTemplate: %v", err)
		}
		if out != "Plan for Biology 101 with 12 lessons" {
			t.Fatalf("rendered: got=%q", out)
		}
	})

	t.Run("tolerates inner whitespace", func(t *testing.T) {
		out, err := RenderTemplate("hello {{ name }}", map[string]string{"name": "world"})
		if err != nil {
			t.Fatalf("RenderTemplate: %v", err)
		}
		if out != "hello world" {
			t.Fatalf("rendered: got=%q", out)
		}
	})

	t.Run("same var twice", func(t *testing.T) {
		out, err := RenderTemplate("{{x}} and {{x}}", map[string]string{"x": "a"})
		if err != nil {
			t.Fatalf("RenderTemplate: %v", err)
		}
		if out != "a and a" {
			t.Fatalf("rendered: got=%q", out)
		}
	})

	t.Run("unknown placeholder is an error", func(t *testing.T) {
		_, err := RenderTemplate("{{title}} {{missing}} {{missing}}", map[string]string{"title": "x"})
		if err == nil {
			t.Fatalf("expected error for unknown placeholder")
		}
		if !strings.Contains(err.Error(), "missing") {
			t.Fatalf("error must name the placeholder: %v", err)
		}
		if strings.Count(err.Error(), "missing") != 1 {
			t.Fatalf("duplicate placeholders must be reported once: %v", err)
		}
	})

	t.Run("empty vars allowed when no placeholders", func(t *testing.T) {
		out, err := RenderTemplate("static prompt", nil)
		if err != nil {
			t.Fatalf("RenderTemplate: %v", err)
		}
		if out != "static prompt" {
			t.Fatalf("rendered: got=%q", out)
		}
	})
}

func TestFeedbackBlock(t *testing.T) {
	t.Parallel()

	if got := FeedbackBlock(nil); got != "" {
		t.Fatalf("empty feedback must render empty, got=%q", got)
	}

	got := FeedbackBlock([]string{"expected 3 modules, got 2", " description too short "})
	if !strings.HasPrefix(got, "The previous attempt failed these checks:\n") {
		t.Fatalf("missing header: %q", got)
	}
	if !strings.Contains(got, "- expected 3 modules, got 2\n") {
		t.Fatalf("missing first check: %q", got)
	}
	if !strings.Contains(got, "- description too short\n") {
		t.Fatalf("messages must be trimmed: %q", got)
	}
	if !strings.HasSuffix(got, "Produce a corrected version that passes every check.") {
		t.Fatalf("missing closing instruction: %q", got)
	}
}
