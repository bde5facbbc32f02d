package script

import (
	"context"
	"fmt"
)

// GenerateOptions shape the transcript requested from a model.
type GenerateOptions struct {
	Minutes     int
	Temperature float64
	Topic       string
}

// Generator turns a narrative into a speaker-tagged interview transcript.
type Generator interface {
	Generate(ctx context.Context, narrative string, opts GenerateOptions) (string, error)
}

// GeneratorConfig carries backend credentials and model selection.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Backends lists the supported script generation backends.
func Backends() []string {
	return []string{"openai", "claude", "gemini", "nova"}
}

// NewGenerator creates a generator for the named backend.
func NewGenerator(ctx context.Context, backend string, cfg GeneratorConfig) (Generator, error) {
	switch backend {
	case "openai":
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "claude":
		return NewClaudeGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "gemini":
		return NewGeminiGenerator(cfg.APIKey, cfg.Model), nil
	case "nova":
		return NewNovaGenerator(ctx, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown script backend %q: choose openai, claude, gemini, or nova", backend)
	}
}
