package genpipe

import (
	"context"
	"fmt"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

// CodeModelOutput tags the synthetic check recorded when a model call itself
// fails (network exhaustion, malformed output). It counts against the attempt
// budget like any other failed validation.
const CodeModelOutput = "model_output"

// Generator produces one candidate payload. feedback carries the failed-check
// messages from the prior attempt (empty on the first). It returns the payload
// and the model that produced it.
type Generator func(ctx context.Context, attempt int, feedback []string) (map[string]any, string, error)

// Validator inspects a payload against domain rules. Must be pure: same
// payload, same report.
type Validator func(payload map[string]any) domain.ValidationReport

// Outcome is the terminal result of the attempt loop. The last payload and
// report are always retained, even after exhaustion, so a reviewer can inspect
// what the model produced.
type Outcome struct {
	Payload   map[string]any
	Report    domain.ValidationReport
	ModelUsed string
	Attempts  int
	Succeeded bool
}

// Run drives the bounded generate-validate loop. It returns an error only for
// context cancellation; validation failure is data, not an error.
func Run(ctx context.Context, cfg Config, gen Generator, validate Validator, log *logger.Logger) (Outcome, error) {
	cfg = cfg.WithDefaults()

	var out Outcome
	var feedback []string

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Attempts = attempt

		payload, model, err := gen(ctx, attempt, feedback)
		if err != nil {
			// A broken attempt is recorded as a failed check, not a crash.
			out.Payload = nil
			out.ModelUsed = model
			out.Report = domain.NewValidationReport([]domain.ValidationResult{{
				Code:    CodeModelOutput,
				Message: fmt.Sprintf("model call failed: %v", err),
				Passed:  false,
			}})
			feedback = out.Report.FailedMessages()
			log.Warn("Generation attempt failed before validation",
				"attempt", attempt,
				"max_attempts", cfg.MaxAttempts,
				"error", err.Error(),
			)
			continue
		}

		out.Payload = payload
		out.ModelUsed = model
		out.Report = validate(payload)
		if out.Report.AllPassed {
			out.Succeeded = true
			return out, nil
		}

		feedback = out.Report.FailedMessages()
		log.Info("Generation attempt failed validation",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"failed_checks", len(feedback),
		)
	}

	return out, nil
}
