package script

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

type fakeGenerator struct {
	out       string
	err       error
	calls     int
	narrative string
}

func (f *fakeGenerator) Generate(_ context.Context, narrative string, _ GenerateOptions) (string, error) {
	f.calls++
	f.narrative = narrative
	return f.out, f.err
}

func newResolver(t *testing.T, gen Generator) (*Resolver, string) {
	t.Helper()
	dir := t.TempDir()
	return &Resolver{
		UserScriptPath:  filepath.Join(dir, "Interview_script.md"),
		OutputPath:      filepath.Join(dir, "out", "interview_script.md"),
		NarrativeSource: filepath.Join(dir, "task05_narrative.txt"),
		Generator:       gen,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestResolvePrefersUserScript(t *testing.T) {
	gen := &fakeGenerator{out: "Interviewer: generated"}
	r, _ := newResolver(t, gen)
	writeFile(t, r.UserScriptPath, "\n Interviewer: from user \n")
	writeFile(t, r.OutputPath, "Interviewer: stale cache")

	text, origin, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if origin != OriginUser || text != "Interviewer: from user" {
		t.Fatalf("got %q (%s)", text, origin)
	}
	if got := readFile(t, r.OutputPath); got != "Interviewer: from user" {
		t.Fatalf("user script should be copied to output, got %q", got)
	}
	if gen.calls != 0 {
		t.Fatalf("generator should not be called")
	}
}

func TestResolveReusesCachedScript(t *testing.T) {
	gen := &fakeGenerator{out: "Interviewer: generated"}
	r, _ := newResolver(t, gen)
	writeFile(t, r.OutputPath, "Expert: cached\n")

	text, origin, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if origin != OriginCached || text != "Expert: cached" {
		t.Fatalf("got %q (%s)", text, origin)
	}
	if gen.calls != 0 {
		t.Fatalf("generator should not be called")
	}
}

func TestResolveGeneratesFromNarrative(t *testing.T) {
	gen := &fakeGenerator{out: "  Interviewer: hi\nExpert: hello  "}
	r, _ := newResolver(t, gen)
	writeFile(t, r.NarrativeSource, "A narrative about voice cloning.\n")

	text, origin, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if origin != OriginGenerated || text != "Interviewer: hi\nExpert: hello" {
		t.Fatalf("got %q (%s)", text, origin)
	}
	if gen.narrative != "A narrative about voice cloning." {
		t.Fatalf("generator got narrative %q", gen.narrative)
	}
	if got := readFile(t, r.OutputPath); got != text {
		t.Fatalf("generated script not saved, got %q", got)
	}
}

func TestResolveForceSkipsExistingScripts(t *testing.T) {
	gen := &fakeGenerator{out: "Interviewer: fresh"}
	r, _ := newResolver(t, gen)
	r.Force = true
	writeFile(t, r.UserScriptPath, "Interviewer: user")
	writeFile(t, r.OutputPath, "Interviewer: cached")

	text, origin, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if origin != OriginGenerated || text != "Interviewer: fresh" {
		t.Fatalf("got %q (%s)", text, origin)
	}
	if gen.narrative == "" {
		t.Fatalf("missing narrative should fall back to the placeholder")
	}
}

func TestResolvePropagatesGeneratorError(t *testing.T) {
	boom := errors.New("boom")
	r, _ := newResolver(t, &fakeGenerator{err: boom})
	if _, _, err := r.Resolve(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped generator error, got %v", err)
	}
	if _, err := os.Stat(r.OutputPath); err == nil {
		t.Fatalf("nothing should be written on failure")
	}
}

func TestResolveWithoutGenerator(t *testing.T) {
	r, _ := newResolver(t, nil)
	if _, _, err := r.Resolve(context.Background()); err == nil {
		t.Fatalf("expected error without generator")
	}
}
