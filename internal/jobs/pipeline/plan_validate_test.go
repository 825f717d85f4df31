package pipeline

import (
	"strings"
	"testing"

	"gorm.io/datatypes"

	"github.com/coursegen/coursegen-backend/internal/genpipe"
)

func TestDecodeLessonPlans(t *testing.T) {
	t.Parallel()

	t.Run("empty column decodes to nothing", func(t *testing.T) {
		plans, corrupt := decodeLessonPlans(nil)
		if plans != nil || corrupt != nil {
			t.Fatalf("empty column: plans=%v corrupt=%v", plans, corrupt)
		}
	})

	t.Run("valid column decodes the rows", func(t *testing.T) {
		plans, corrupt := decodeLessonPlans(datatypes.JSON(`[{"lesson_id":"a"},{"lesson_id":"b"}]`))
		if corrupt != nil {
			t.Fatalf("unexpected corruption check: %+v", corrupt)
		}
		if len(plans) != 2 {
			t.Fatalf("rows: got=%d want=2", len(plans))
		}
	})

	t.Run("corrupt column surfaces a failed check", func(t *testing.T) {
		plans, corrupt := decodeLessonPlans(datatypes.JSON(`{not json`))
		if plans != nil {
			t.Fatalf("corrupt column must not decode rows: %v", plans)
		}
		if corrupt == nil {
			t.Fatalf("corrupt column must surface a failed check")
		}
		if corrupt.Passed || corrupt.Code != genpipe.CodeModelOutput {
			t.Fatalf("corruption check: %+v", corrupt)
		}
		if !strings.Contains(corrupt.Message, "not valid JSON") {
			t.Fatalf("message must name the corruption: %q", corrupt.Message)
		}
	})
}
