package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectSource(t *testing.T) {
	tests := map[string]SourceType{
		"https://example.com/story": SourceURL,
		"http://example.com":        SourceURL,
		"report.PDF":                SourcePDF,
		"task05_narrative.txt":      SourceText,
		"notes.md":                  SourceText,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := DetectSource(in); got != want {
				t.Fatalf("DetectSource(%q) = %s, want %s", in, got, want)
			}
		})
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("  one two\tthree\nfour  "); got != 4 {
		t.Fatalf("WordCount = %d, want 4", got)
	}
	if got := WordCount(""); got != 0 {
		t.Fatalf("WordCount(empty) = %d", got)
	}
}

func TestTextIngesterTrims(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "n.txt")
	if err := os.WriteFile(path, []byte("\n  The lab found a leak.\nIt was small.  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := (&TextIngester{}).Ingest(context.Background(), path)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n.Text != "The lab found a leak.\nIt was small." {
		t.Fatalf("unexpected text %q", n.Text)
	}
	if n.Title != "The lab found a leak." || n.Source != "n.txt" || n.WordCount != 8 {
		t.Fatalf("unexpected narrative: %+v", n)
	}
}

func TestTextIngesterRejectsEmptyAndDirs(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&TextIngester{}).Ingest(context.Background(), empty); err == nil {
		t.Fatalf("expected error for empty file")
	}
	if _, err := (&TextIngester{}).Ingest(context.Background(), dir); err == nil {
		t.Fatalf("expected error for directory")
	}
}

func TestReadNarrativeMissingFileFallsBackToPlaceholder(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "task05_narrative.txt")
	n, err := ReadNarrative(context.Background(), missing, false)
	if err != nil {
		t.Fatalf("ReadNarrative: %v", err)
	}
	if n.Text != PlaceholderNarrative {
		t.Fatalf("expected placeholder, got %q", n.Text)
	}

	if _, err := ReadNarrative(context.Background(), missing, true); err == nil {
		t.Fatalf("expected error when narrative is required")
	}
}

func TestURLIngester(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Deepfake Report</title></head><body><article>
<h1>Deepfake Report</h1>
<p>Researchers documented how a cloned voice was used to authorize a fraudulent wire transfer at a mid-sized firm.</p>
<p>The finance team followed the instructions because the caller sounded exactly like their director.</p>
<p>Investigators later traced the audio to a commercially available voice cloning service.</p>
</article></body></html>`))
	}))
	defer srv.Close()

	n, err := (&URLIngester{Client: srv.Client()}).Ingest(context.Background(), srv.URL+"/story")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !strings.Contains(n.Text, "cloned voice") {
		t.Fatalf("article text missing: %q", n.Text)
	}

	if _, err := (&URLIngester{Client: srv.Client()}).Ingest(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestFirstLineTitle(t *testing.T) {
	long := strings.Repeat("é", 100)
	tests := []struct {
		in, want string
	}{
		{"Headline\nbody", "Headline"},
		{"", "Untitled"},
		{long, strings.Repeat("é", 80) + "..."},
	}
	for _, tt := range tests {
		if got := firstLineTitle(tt.in); got != tt.want {
			t.Errorf("firstLineTitle(%.10q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
