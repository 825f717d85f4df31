package validate

import (
	"strings"
	"testing"

	"github.com/coursegen/coursegen-backend/internal/domain"
)

func findResult(t *testing.T, r domain.ValidationReport, code string) domain.ValidationResult {
	t.Helper()
	for _, res := range r.Results {
		if res.Code == code {
			return res
		}
	}
	t.Fatalf("no result with code %q in %+v", code, r.Results)
	return domain.ValidationResult{}
}

func validArtifactPayload() map[string]any {
	return map[string]any{
		"name_options": []any{"Curso de Biologia", "Biologia Moderna", "Fundamentos de Biologia"},
		"objectives": []any{
			"Comprender los principios basicos de la genetica",
			"Analizar los procesos de la evolucion natural",
			"Aplicar el metodo cientifico en experimentos simples",
		},
		"description": "Un curso introductorio que recorre los fundamentos de la biologia moderna.",
	}
}

func TestArtifactRulesValidate(t *testing.T) {
	t.Parallel()

	rules := DefaultArtifactRules()

	t.Run("valid payload passes", func(t *testing.T) {
		r := rules.Validate(validArtifactPayload())
		if !r.AllPassed {
			t.Fatalf("expected pass, failures: %v", r.FailedMessages())
		}
	})

	t.Run("wrong name option count", func(t *testing.T) {
		p := validArtifactPayload()
		p["name_options"] = []any{"Solo uno"}
		r := rules.Validate(p)
		res := findResult(t, r, "name_options")
		if res.Passed {
			t.Fatalf("expected name_options failure")
		}
		if !strings.Contains(res.Message, "expected 3") || !strings.Contains(res.Message, "got 1") {
			t.Fatalf("message must name both counts: %q", res.Message)
		}
	})

	t.Run("objective count out of range", func(t *testing.T) {
		p := validArtifactPayload()
		p["objectives"] = []any{"Comprender algo", "Aplicar algo"}
		r := rules.Validate(p)
		if findResult(t, r, "objective_count").Passed {
			t.Fatalf("2 objectives must fail the 3..8 range")
		}
	})

	t.Run("objective without allowed verb", func(t *testing.T) {
		p := validArtifactPayload()
		p["objectives"] = []any{
			"Memorizar la tabla periodica",
			"Comprender los enlaces quimicos",
			"Aplicar estequiometria basica",
		}
		r := rules.Validate(p)
		res := findResult(t, r, "objective_1_verb")
		if res.Passed {
			t.Fatalf("Memorizar is not an allowed leading verb")
		}
		if !strings.Contains(res.Message, "Memorizar") {
			t.Fatalf("message must quote the objective: %q", res.Message)
		}
		if !findResult(t, r, "objective_2_verb").Passed {
			t.Fatalf("remaining objectives must still be checked independently")
		}
	})

	t.Run("verb match is case-insensitive", func(t *testing.T) {
		p := validArtifactPayload()
		p["objectives"] = []any{
			"comprender la fotosintesis a nivel celular",
			"ANALIZAR cadenas troficas",
			"Diseñar un experimento controlado",
		}
		if r := rules.Validate(p); !r.AllPassed {
			t.Fatalf("case variants must pass, failures: %v", r.FailedMessages())
		}
	})

	t.Run("description length boundary", func(t *testing.T) {
		p := validArtifactPayload()
		// Exactly 30 runes is not strictly longer than 30.
		p["description"] = strings.Repeat("á", 30)
		if findResult(t, rules.Validate(p), "description_length").Passed {
			t.Fatalf("30 runes must fail the longer-than-30 rule")
		}

		p["description"] = strings.Repeat("á", 31)
		if !findResult(t, rules.Validate(p), "description_length").Passed {
			t.Fatalf("31 runes must pass")
		}
	})
}
