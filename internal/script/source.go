package script

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/apresai/interviewcast/internal/ingest"
)

// Origin records where a script came from.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginCached    Origin = "cached"
	OriginGenerated Origin = "generated"
)

// Resolver picks the script for a run: a user-supplied file wins, then a
// previously generated copy in the output directory, and only then a fresh
// generation from the narrative.
type Resolver struct {
	UserScriptPath    string
	OutputPath        string
	NarrativeSource   string
	NarrativeRequired bool
	Generator         Generator
	Options           GenerateOptions
	// Force skips the user and cached scripts and always generates.
	Force  bool
	Logger *slog.Logger
}

// Resolve returns the script text and its origin. The chosen text is always
// left at OutputPath.
func (r *Resolver) Resolve(ctx context.Context) (string, Origin, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !r.Force && r.UserScriptPath != "" {
		text, ok, err := readIfExists(r.UserScriptPath)
		if err != nil {
			return "", "", err
		}
		if ok {
			if err := r.save(text); err != nil {
				return "", "", err
			}
			logger.InfoContext(ctx, "using existing script", "path", r.UserScriptPath)
			return text, OriginUser, nil
		}
	}

	if !r.Force {
		text, ok, err := readIfExists(r.OutputPath)
		if err != nil {
			return "", "", err
		}
		if ok {
			logger.InfoContext(ctx, "using existing script", "path", r.OutputPath)
			return text, OriginCached, nil
		}
	}

	if r.Generator == nil {
		return "", "", fmt.Errorf("no script found and no generator configured")
	}

	logger.InfoContext(ctx, "no script found; generating from narrative", "narrative", r.NarrativeSource)
	narrative, err := ingest.ReadNarrative(ctx, r.NarrativeSource, r.NarrativeRequired)
	if err != nil {
		return "", "", fmt.Errorf("read narrative: %w", err)
	}

	text, err := r.Generator.Generate(ctx, narrative.Text, r.Options)
	if err != nil {
		return "", "", fmt.Errorf("generate script: %w", err)
	}
	text = strings.TrimSpace(text)
	if err := r.save(text); err != nil {
		return "", "", err
	}
	return text, OriginGenerated, nil
}

func (r *Resolver) save(text string) error {
	if r.OutputPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create script dir: %w", err)
	}
	if err := os.WriteFile(r.OutputPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write script to %s: %w", r.OutputPath, err)
	}
	return nil
}

func readIfExists(path string) (string, bool, error) {
	if path == "" {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read script from %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), true, nil
}
