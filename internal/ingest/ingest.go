// Package ingest reads the narrative an interview is written from: a local
// text file, a PDF, or a web article.
package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// SourceType classifies a narrative source.
type SourceType string

const (
	SourceURL  SourceType = "url"
	SourcePDF  SourceType = "pdf"
	SourceText SourceType = "text"
)

// Narratives larger than this are rejected (files) or truncated (URLs).
const maxNarrativeBytes = 25 << 20

const maxTitleRunes = 80

// Narrative is the source text an interview is written from.
type Narrative struct {
	Text      string
	Title     string
	Source    string
	WordCount int
}

// Ingester reads one kind of source.
type Ingester interface {
	Ingest(ctx context.Context, source string) (*Narrative, error)
}

// DetectSource picks the source type from the input's scheme or extension.
func DetectSource(input string) SourceType {
	lower := strings.ToLower(input)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceURL
	case strings.HasSuffix(lower, ".pdf"):
		return SourcePDF
	}
	return SourceText
}

// NewIngester returns the ingester for input's source type.
func NewIngester(input string) Ingester {
	switch DetectSource(input) {
	case SourceURL:
		return &URLIngester{}
	case SourcePDF:
		return &PDFIngester{}
	}
	return &TextIngester{}
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func newNarrative(text, title, source string) *Narrative {
	text = strings.TrimSpace(text)
	if title == "" {
		title = firstLineTitle(text)
	}
	return &Narrative{
		Text:      text,
		Title:     title,
		Source:    source,
		WordCount: WordCount(text),
	}
}

// firstLineTitle uses the first line, cut to maxTitleRunes.
func firstLineTitle(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "Untitled"
	}
	if utf8.RuneCountInString(line) > maxTitleRunes {
		line = string([]rune(line)[:maxTitleRunes]) + "..."
	}
	return line
}

// checkFile rejects directories and oversized files before they are read.
func checkFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return fmt.Errorf("cannot access %s: %w", path, err)
	case info.IsDir():
		return fmt.Errorf("%s is a directory, not a file", path)
	case info.Size() > maxNarrativeBytes:
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()>>20, maxNarrativeBytes>>20)
	}
	return nil
}
