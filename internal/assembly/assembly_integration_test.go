//go:build integration

package assembly

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func tone(t *testing.T, path string, seconds string) {
	t.Helper()
	cmd := exec.Command("ffmpeg", "-f", "lavfi", "-i", "sine=frequency=440:duration="+seconds, "-y", path)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("make tone: %v\n%s", err, b)
	}
}

func TestAssembleWithFFmpeg(t *testing.T) {
	if err := CheckFFmpeg(); err != nil {
		t.Skip(err)
	}
	ctx := context.Background()
	dir := t.TempDir()
	a := NewFFmpegAssembler("", "")

	var clips []string
	for _, name := range []string{"a", "b"} {
		raw := filepath.Join(dir, name+"-raw.mp3")
		tone(t, raw, "1")
		norm := filepath.Join(dir, name+".mp3")
		if err := a.ConvertToMP3(ctx, raw, "mp3", norm); err != nil {
			t.Fatalf("ConvertToMP3: %v", err)
		}
		clips = append(clips, norm)
	}

	out := filepath.Join(dir, "out.mp3")
	if err := a.Assemble(ctx, clips, dir, out); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	got, err := a.ProbeDuration(ctx, out)
	if err != nil {
		t.Fatalf("ProbeDuration: %v", err)
	}
	want := LeadSilence + 2*time.Second + 2*LineSpacer
	if diff := got - want; diff < -300*time.Millisecond || diff > 300*time.Millisecond {
		t.Fatalf("duration = %v, want about %v", got, want)
	}

	clipLen, err := ClipDuration(clips[0])
	if err != nil {
		t.Fatalf("ClipDuration: %v", err)
	}
	// The Info tag's delay and padding are excluded, so a 1 s tone measures
	// within a frame's worth of jitter.
	if clipLen < 980*time.Millisecond || clipLen > 1020*time.Millisecond {
		t.Fatalf("ClipDuration = %v", clipLen)
	}
}
