package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type TextIngester struct{}

func (t *TextIngester) Ingest(ctx context.Context, source string) (*Narrative, error) {
	if err := checkFile(source); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", source, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("file %s is empty", source)
	}

	return newNarrative(string(data), "", filepath.Base(source)), nil
}
