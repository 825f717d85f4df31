package genpipe

import (
	"time"

	"github.com/coursegen/coursegen-backend/internal/pkg/env"
)

// DefaultMaxAttempts bounds the generate-validate loop for every job kind.
const DefaultMaxAttempts = 3

// FallbackModel is the hardcoded last resort appended when configuration
// yields no candidates at all.
const FallbackModel = "gpt-5.2"

// Config drives one pipeline instantiation. It is built once at wiring time
// and passed explicitly; pipelines never read the environment themselves.
type Config struct {
	MaxAttempts     int
	ModelCandidates []string
	ResearchModels  []string
	Timeout         time.Duration
}

// LoadConfig reads the shared generation settings from the environment:
// COURSEGEN_MODELS and COURSEGEN_RESEARCH_MODELS are ordered comma-separated
// fallback lists, COURSEGEN_MAX_ATTEMPTS the retry bound, COURSEGEN_JOB_TIMEOUT
// the whole-job deadline.
func LoadConfig() Config {
	cfg := Config{
		MaxAttempts:     env.GetInt("COURSEGEN_MAX_ATTEMPTS", DefaultMaxAttempts),
		ModelCandidates: env.GetList("COURSEGEN_MODELS", nil),
		ResearchModels:  env.GetList("COURSEGEN_RESEARCH_MODELS", nil),
		Timeout:         env.GetDuration("COURSEGEN_JOB_TIMEOUT", 10*time.Minute),
	}
	return cfg.WithDefaults()
}

// WithDefaults fills unset fields so a zero Config is still runnable.
func (c Config) WithDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if len(c.ModelCandidates) == 0 {
		c.ModelCandidates = []string{FallbackModel}
	}
	if len(c.ResearchModels) == 0 {
		c.ResearchModels = c.ModelCandidates
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	return c
}
