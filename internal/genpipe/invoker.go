package genpipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursegen/coursegen-backend/internal/clients/openai"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

// ErrAllCandidatesFailed is returned once every model in the ordered fallback
// list has been tried exactly once and failed.
var ErrAllCandidatesFailed = errors.New("all model candidates failed")

// ModelInvoker walks an ordered model-candidate list for each call. It holds
// no per-job state and is safe to share across concurrent pipelines.
type ModelInvoker struct {
	ai  openai.Client
	log *logger.Logger
}

func NewModelInvoker(ai openai.Client, baseLog *logger.Logger) *ModelInvoker {
	return &ModelInvoker{
		ai:  ai,
		log: baseLog.With("component", "ModelInvoker"),
	}
}

// GenerateJSON tries each candidate in order and returns the first structured
// payload along with the model that produced it. Context cancellation stops
// the walk immediately; any other failure moves on to the next candidate.
func (m *ModelInvoker) GenerateJSON(ctx context.Context, candidates []string, system, user, schemaName string, schema map[string]any) (map[string]any, string, error) {
	if len(candidates) == 0 {
		return nil, "", fmt.Errorf("%w: no candidates configured", ErrAllCandidatesFailed)
	}
	var lastErr error
	for _, model := range candidates {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		payload, err := m.ai.GenerateJSON(ctx, model, system, user, schemaName, schema)
		if err == nil {
			return payload, model, nil
		}
		lastErr = err
		m.log.Warn("Model candidate failed, falling through",
			"model", model,
			"schema", schemaName,
			"error", err.Error(),
		)
	}
	return nil, "", fmt.Errorf("%w: last error: %v", ErrAllCandidatesFailed, lastErr)
}

// Research runs a web-search call through the candidate list. Same fallback
// discipline as GenerateJSON; returns text, issued queries, and the model used.
func (m *ModelInvoker) Research(ctx context.Context, candidates []string, prompt string) (string, []string, string, error) {
	if len(candidates) == 0 {
		return "", nil, "", fmt.Errorf("%w: no candidates configured", ErrAllCandidatesFailed)
	}
	var lastErr error
	for _, model := range candidates {
		if ctx.Err() != nil {
			return "", nil, "", ctx.Err()
		}
		text, queries, err := m.ai.Research(ctx, model, prompt)
		if err == nil {
			return text, queries, model, nil
		}
		lastErr = err
		m.log.Warn("Research model candidate failed, falling through",
			"model", model,
			"error", err.Error(),
		)
	}
	return "", nil, "", fmt.Errorf("%w: last error: %v", ErrAllCandidatesFailed, lastErr)
}
