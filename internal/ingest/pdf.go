package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFIngester struct{}

func (p *PDFIngester) Ingest(ctx context.Context, source string) (*Narrative, error) {
	if err := checkFile(source); err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(source)
	if err != nil {
		return nil, fmt.Errorf("could not read PDF %s: %w", source, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // unreadable pages are skipped
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("could not extract text from PDF %s (it may be scanned or image-based)", source)
	}

	return newNarrative(text, "", filepath.Base(source)), nil
}
