package genpipe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func failingReport(msg string) domain.ValidationReport {
	return domain.NewValidationReport([]domain.ValidationResult{
		{Code: "check", Message: msg, Passed: false},
	})
}

func passingReport() domain.ValidationReport {
	return domain.NewValidationReport([]domain.ValidationResult{
		{Code: "check", Message: "ok", Passed: true},
	})
}

func TestRunStopsOnFirstSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	gen := func(ctx context.Context, attempt int, feedback []string) (map[string]any, string, error) {
		calls++
		return map[string]any{"n": attempt}, "model-a", nil
	}
	validate := func(payload map[string]any) domain.ValidationReport {
		return passingReport()
	}

	out, err := Run(context.Background(), Config{MaxAttempts: 3}, gen, validate, testLogger(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Succeeded || out.Attempts != 1 || calls != 1 {
		t.Fatalf("expected one successful attempt, got succeeded=%v attempts=%d calls=%d", out.Succeeded, out.Attempts, calls)
	}
	if out.ModelUsed != "model-a" {
		t.Fatalf("model used: got=%q", out.ModelUsed)
	}
}

func TestRunNeverExceedsMaxAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	gen := func(ctx context.Context, attempt int, feedback []string) (map[string]any, string, error) {
		calls++
		return map[string]any{"n": attempt}, "model-a", nil
	}
	validate := func(payload map[string]any) domain.ValidationReport {
		return failingReport("always wrong")
	}

	out, err := Run(context.Background(), Config{MaxAttempts: 3}, gen, validate, testLogger(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Succeeded {
		t.Fatalf("expected exhaustion")
	}
	if out.Attempts != 3 || calls != 3 {
		t.Fatalf("attempts: got=%d calls=%d want=3", out.Attempts, calls)
	}
	// The last payload and report survive exhaustion.
	if out.Payload == nil || out.Payload["n"] != 3 {
		t.Fatalf("last payload not retained: %+v", out.Payload)
	}
	if out.Report.AllPassed {
		t.Fatalf("exhausted report must not pass")
	}
}

func TestRunInjectsFeedbackFromPriorAttempt(t *testing.T) {
	t.Parallel()

	var seen [][]string
	gen := func(ctx context.Context, attempt int, feedback []string) (map[string]any, string, error) {
		seen = append(seen, feedback)
		return map[string]any{"n": attempt}, "model-a", nil
	}
	validate := func(payload map[string]any) domain.ValidationReport {
		if payload["n"] == 2 {
			return passingReport()
		}
		return failingReport("needs exactly 3 modules")
	}

	out, err := Run(context.Background(), Config{MaxAttempts: 3}, gen, validate, testLogger(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Succeeded || out.Attempts != 2 {
		t.Fatalf("expected success on attempt 2, got succeeded=%v attempts=%d", out.Succeeded, out.Attempts)
	}
	if len(seen[0]) != 0 {
		t.Fatalf("first attempt must have no feedback, got %v", seen[0])
	}
	if len(seen[1]) != 1 || seen[1][0] != "needs exactly 3 modules" {
		t.Fatalf("second attempt feedback: got %v", seen[1])
	}
}

func TestRunTreatsGeneratorErrorAsFailedAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	gen := func(ctx context.Context, attempt int, feedback []string) (map[string]any, string, error) {
		calls++
		if attempt == 1 {
			return nil, "", fmt.Errorf("malformed JSON from model")
		}
		return map[string]any{"n": attempt}, "model-b", nil
	}
	validate := func(payload map[string]any) domain.ValidationReport {
		return passingReport()
	}

	out, err := Run(context.Background(), Config{MaxAttempts: 3}, gen, validate, testLogger(t))
	if err != nil {
		t.Fatalf("a broken attempt must not abort the job: %v", err)
	}
	if !out.Succeeded || out.Attempts != 2 || calls != 2 {
		t.Fatalf("expected recovery on attempt 2, got succeeded=%v attempts=%d calls=%d", out.Succeeded, out.Attempts, calls)
	}
}

func TestRunGeneratorErrorFeedsNextAttempt(t *testing.T) {
	t.Parallel()

	var secondFeedback []string
	gen := func(ctx context.Context, attempt int, feedback []string) (map[string]any, string, error) {
		if attempt == 1 {
			return nil, "", fmt.Errorf("boom")
		}
		secondFeedback = feedback
		return map[string]any{}, "model-a", nil
	}
	validate := func(payload map[string]any) domain.ValidationReport {
		return passingReport()
	}

	if _, err := Run(context.Background(), Config{MaxAttempts: 2}, gen, validate, testLogger(t)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(secondFeedback) != 1 {
		t.Fatalf("expected synthetic check message as feedback, got %v", secondFeedback)
	}
}

func TestRunReturnsContextError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := func(ctx context.Context, attempt int, feedback []string) (map[string]any, string, error) {
		t.Fatalf("generator must not run after cancellation")
		return nil, "", nil
	}
	validate := func(payload map[string]any) domain.ValidationReport {
		return passingReport()
	}

	_, err := Run(ctx, Config{MaxAttempts: 3}, gen, validate, testLogger(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
