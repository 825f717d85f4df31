package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/genpipe"
)

func mustJSON(v any) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

func decodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return []string{}
	}
	return out
}

// objectivesBlock renders admin objectives one per line, numbered, the shape
// the syllabus prompt consumes.
func objectivesBlock(objectives []string) string {
	var b strings.Builder
	for i, o := range objectives {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(o))
	}
	return strings.TrimSpace(b.String())
}

// formBlock renders the raw intake form as a sorted field list so prompt text
// is stable across runs.
func formBlock(raw datatypes.JSON) string {
	if len(raw) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, m[k])
	}
	return strings.TrimSpace(b.String())
}

// lessonsBlock renders flattened lessons with module context for the plan
// prompt. Each line carries the lesson_id the model must echo back.
func lessonsBlock(lessons []domain.FlatLesson) string {
	var b strings.Builder
	for _, l := range lessons {
		fmt.Fprintf(&b, "- lesson_id=%s module=%q (module %d, lesson %d) title=%q summary=%q\n",
			l.LessonID, l.ModuleTitle, l.ModuleIndex+1, l.LessonIndex+1, l.Title, l.Summary)
	}
	return strings.TrimSpace(b.String())
}

// flattenLessons joins lesson rows with their module context, ordered by
// module then lesson index.
func flattenLessons(modules []*domain.Module, lessons []*domain.Lesson) []domain.FlatLesson {
	byID := make(map[uuid.UUID]*domain.Module, len(modules))
	for _, m := range modules {
		if m != nil {
			byID[m.ID] = m
		}
	}
	out := make([]domain.FlatLesson, 0, len(lessons))
	for _, l := range lessons {
		if l == nil {
			continue
		}
		fl := domain.FlatLesson{
			LessonID:    l.ID,
			Title:       l.Title,
			Summary:     l.Summary,
			LessonIndex: l.Index,
		}
		if m, ok := byID[l.ModuleID]; ok {
			fl.ModuleTitle = m.Title
			fl.ModuleIndex = m.Index
		}
		out = append(out, fl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModuleIndex != out[j].ModuleIndex {
			return out[i].ModuleIndex < out[j].ModuleIndex
		}
		return out[i].LessonIndex < out[j].LessonIndex
	})
	return out
}

func generationMeta(outcome genpipe.Outcome, research genpipe.ResearchContext, originalInput map[string]any) domain.GenerationMeta {
	return domain.GenerationMeta{
		ModelUsed:       outcome.ModelUsed,
		ResearchSummary: research.Summary(),
		SearchQueries:   research.SourceQueries,
		Attempts:        outcome.Attempts,
		OriginalInput:   originalInput,
		GeneratedAt:     time.Now().UTC(),
	}
}
