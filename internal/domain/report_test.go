package domain

import (
	"reflect"
	"testing"
)

func TestNewValidationReport(t *testing.T) {
	t.Parallel()

	t.Run("all passing", func(t *testing.T) {
		r := NewValidationReport([]ValidationResult{
			{Code: "a", Passed: true},
			{Code: "b", Passed: true},
		})
		if !r.AllPassed {
			t.Fatalf("expected AllPassed")
		}
	})

	t.Run("one failure poisons the report", func(t *testing.T) {
		r := NewValidationReport([]ValidationResult{
			{Code: "a", Passed: true},
			{Code: "b", Message: "nope", Passed: false},
			{Code: "c", Passed: true},
		})
		if r.AllPassed {
			t.Fatalf("report with a failed check must not pass")
		}
	})

	t.Run("empty report is inconclusive", func(t *testing.T) {
		if r := NewValidationReport(nil); r.AllPassed {
			t.Fatalf("a report with zero results must count as failed")
		}
	})
}

func TestFailedMessages(t *testing.T) {
	t.Parallel()

	r := NewValidationReport([]ValidationResult{
		{Code: "a", Message: "first", Passed: false},
		{Code: "b", Message: "fine", Passed: true},
		{Code: "c", Message: "second", Passed: false},
	})
	got := r.FailedMessages()
	if want := []string{"first", "second"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("failed messages: got=%v want=%v", got, want)
	}

	if msgs := NewValidationReport([]ValidationResult{{Code: "a", Passed: true}}).FailedMessages(); len(msgs) != 0 {
		t.Fatalf("passing report must yield no messages, got %v", msgs)
	}
}

func TestDoDPassed(t *testing.T) {
	t.Parallel()

	ok := DoD{Control3Consistency: true, Control4Sources: true, Control5Quiz: true}
	if !ok.Passed() {
		t.Fatalf("all controls true must pass")
	}

	withErrors := ok
	withErrors.Errors = []string{"quiz question 2 has a short explanation"}
	if withErrors.Passed() {
		t.Fatalf("recorded errors must fail the DoD even with all controls true")
	}

	missing := ok
	missing.Control4Sources = false
	if missing.Passed() {
		t.Fatalf("a false control must fail the DoD")
	}
}
