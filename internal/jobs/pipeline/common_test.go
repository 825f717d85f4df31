package pipeline

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/coursegen/coursegen-backend/internal/domain"
)

func TestObjectivesBlock(t *testing.T) {
	t.Parallel()

	got := objectivesBlock([]string{" Comprender la celula ", "Analizar la genetica"})
	want := "1. Comprender la celula\n2. Analizar la genetica"
	if got != want {
		t.Fatalf("objectives block:\ngot:  %q\nwant: %q", got, want)
	}
	if objectivesBlock(nil) != "" {
		t.Fatalf("empty input must render empty")
	}
}

func TestFormBlockIsSortedAndStable(t *testing.T) {
	t.Parallel()

	raw := datatypes.JSON(`{"nivel":"basico","audiencia":"docentes","duracion":8}`)
	got := formBlock(raw)
	want := "- audiencia: docentes\n- duracion: 8\n- nivel: basico"
	if got != want {
		t.Fatalf("form block:\ngot:  %q\nwant: %q", got, want)
	}
	if formBlock(nil) != "" || formBlock(datatypes.JSON(`not json`)) != "" {
		t.Fatalf("empty or malformed form must render empty")
	}
}

func TestFlattenLessonsOrdering(t *testing.T) {
	t.Parallel()

	artifactID := uuid.New()
	modA := &domain.Module{ID: uuid.New(), ArtifactID: artifactID, Index: 0, Title: "Modulo A"}
	modB := &domain.Module{ID: uuid.New(), ArtifactID: artifactID, Index: 1, Title: "Modulo B"}

	lessons := []*domain.Lesson{
		{ID: uuid.New(), ModuleID: modB.ID, Index: 1, Title: "B2"},
		{ID: uuid.New(), ModuleID: modA.ID, Index: 1, Title: "A2"},
		{ID: uuid.New(), ModuleID: modB.ID, Index: 0, Title: "B1"},
		{ID: uuid.New(), ModuleID: modA.ID, Index: 0, Title: "A1"},
	}

	flat := flattenLessons([]*domain.Module{modA, modB}, lessons)
	if len(flat) != 4 {
		t.Fatalf("flattened count: got=%d", len(flat))
	}
	var titles []string
	for _, f := range flat {
		titles = append(titles, f.Title)
	}
	if got := strings.Join(titles, ","); got != "A1,A2,B1,B2" {
		t.Fatalf("ordering: got=%s", got)
	}
	if flat[0].ModuleTitle != "Modulo A" || flat[3].ModuleTitle != "Modulo B" {
		t.Fatalf("module context missing: %+v", flat)
	}
}

func TestLessonsBlockCarriesLessonIDs(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	got := lessonsBlock([]domain.FlatLesson{{
		LessonID:    id,
		Title:       "Celulas",
		Summary:     "Intro",
		ModuleTitle: "Biologia",
	}})
	if !strings.Contains(got, "lesson_id="+id.String()) {
		t.Fatalf("block must echo the lesson id: %q", got)
	}
	if !strings.Contains(got, `module="Biologia"`) {
		t.Fatalf("block must name the module: %q", got)
	}
}

func TestDecodeStrings(t *testing.T) {
	t.Parallel()

	got := decodeStrings(datatypes.JSON(`["a","b"]`))
	if len(got) != 2 || got[0] != "a" {
		t.Fatalf("decoded: %v", got)
	}
	if len(decodeStrings(nil)) != 0 {
		t.Fatalf("nil column must decode empty")
	}
	if len(decodeStrings(datatypes.JSON(`{"x":1}`))) != 0 {
		t.Fatalf("wrong shape must decode empty")
	}
}
