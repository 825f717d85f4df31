package validate

import (
	"strings"
	"testing"
)

func syllabusModule(objective, title string, lessonCount int) map[string]any {
	lessons := make([]any, 0, lessonCount)
	for i := 0; i < lessonCount; i++ {
		lessons = append(lessons, map[string]any{
			"title":               title + " leccion",
			"summary":             "Resumen de la leccion con suficiente detalle pedagogico.",
			"expected_components": []any{"TEXT", "QUIZ"},
		})
	}
	return map[string]any{
		"title":       title,
		"objective":   objective,
		"description": "Una descripcion del modulo con suficiente contenido para el revisor.",
		"lessons":     lessons,
	}
}

func TestSyllabusRulesValidate(t *testing.T) {
	t.Parallel()

	objectives := []string{
		"Comprender los fundamentos de la genetica",
		"Analizar los procesos evolutivos",
		"Aplicar el metodo cientifico",
	}
	rules := DefaultSyllabusRules(objectives)

	valid := func() map[string]any {
		return map[string]any{
			"modules": []any{
				syllabusModule(objectives[0], "Genetica", 3),
				syllabusModule(objectives[1], "Evolucion", 4),
				syllabusModule(objectives[2], "Metodo", 6),
			},
		}
	}

	t.Run("valid payload passes", func(t *testing.T) {
		r := rules.Validate(valid())
		if !r.AllPassed {
			t.Fatalf("expected pass, failures: %v", r.FailedMessages())
		}
		// Lesson-level rules leave a passing entry too, so the full report
		// shows every check that ran.
		if res := findResult(t, r, "module_1_lesson_1_title"); !res.Passed {
			t.Fatalf("title check must record a passing result: %+v", res)
		}
		if res := findResult(t, r, "module_1_lesson_1_components"); !res.Passed {
			t.Fatalf("components check must record a passing result: %+v", res)
		}
	})

	t.Run("module count must equal objective count", func(t *testing.T) {
		p := map[string]any{"modules": []any{
			syllabusModule(objectives[0], "Genetica", 3),
			syllabusModule(objectives[1], "Evolucion", 3),
		}}
		r := rules.Validate(p)
		res := findResult(t, r, "module_count")
		if res.Passed {
			t.Fatalf("2 modules against 3 objectives must fail")
		}
		if !strings.Contains(res.Message, "expected 3") || !strings.Contains(res.Message, "got 2") {
			t.Fatalf("message must name both counts: %q", res.Message)
		}
	})

	t.Run("modules must follow objective order", func(t *testing.T) {
		p := valid()
		mods := p["modules"].([]any)
		mods[0].(map[string]any)["objective"] = objectives[1]
		r := rules.Validate(p)
		res := findResult(t, r, "module_1_objective_order")
		if res.Passed {
			t.Fatalf("out-of-order objective must fail")
		}
		if !strings.Contains(res.Message, objectives[0]) {
			t.Fatalf("message must name the expected objective: %q", res.Message)
		}
	})

	t.Run("objective match ignores case and padding", func(t *testing.T) {
		p := valid()
		mods := p["modules"].([]any)
		mods[2].(map[string]any)["objective"] = "  APLICAR EL METODO CIENTIFICO "
		if r := rules.Validate(p); !r.AllPassed {
			t.Fatalf("case and whitespace variants must pass, failures: %v", r.FailedMessages())
		}
	})

	t.Run("lesson count per module is bounded", func(t *testing.T) {
		p := valid()
		mods := p["modules"].([]any)
		mods[1] = syllabusModule(objectives[1], "Evolucion", 7)
		if findResult(t, rules.Validate(p), "module_2_lessons").Passed {
			t.Fatalf("7 lessons must fail the 3..6 bound")
		}

		mods[1] = syllabusModule(objectives[1], "Evolucion", 2)
		if findResult(t, rules.Validate(p), "module_2_lessons").Passed {
			t.Fatalf("2 lessons must fail the 3..6 bound")
		}
	})

	t.Run("lesson missing title or components", func(t *testing.T) {
		p := valid()
		mod := p["modules"].([]any)[0].(map[string]any)
		lesson := mod["lessons"].([]any)[1].(map[string]any)
		lesson["title"] = "  "
		lesson["expected_components"] = []any{}
		r := rules.Validate(p)
		if findResult(t, r, "module_1_lesson_2_title").Passed {
			t.Fatalf("blank title must fail")
		}
		if findResult(t, r, "module_1_lesson_2_components").Passed {
			t.Fatalf("empty expected_components must fail")
		}
	})
}
