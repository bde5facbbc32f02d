package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apresai/interviewcast/internal/config"
	"github.com/apresai/interviewcast/internal/progress"
	"github.com/apresai/interviewcast/internal/publish"
	"github.com/apresai/interviewcast/internal/script"
	"github.com/apresai/interviewcast/internal/tts"
)

const sampleScript = `# Interview

**Interviewer:** What happened in the lab?
**Expert:** We found the model could clone a voice from thirty seconds of audio.
Interviewer: Should people worry?
Expert: They should verify before they trust.
`

type fakeProvider struct {
	fail  int // 1-based line that fails, 0 = never
	calls []tts.Voice
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) DefaultVoices() tts.VoiceMap {
	return tts.VoiceMap{Interviewer: tts.Voice{ID: "iv"}, Expert: tts.Voice{ID: "ex"}}
}

func (f *fakeProvider) Synthesize(_ context.Context, text string, v tts.Voice) (tts.AudioResult, error) {
	f.calls = append(f.calls, v)
	if f.fail == len(f.calls) {
		return tts.AudioResult{}, errors.New("quota exceeded")
	}
	return tts.AudioResult{Data: []byte("mp3:" + text), Format: tts.FormatMP3}, nil
}

func (f *fakeProvider) Close() error { return nil }

type fakeAudio struct {
	converted []string
	assembled []string
	durErr    error
}

func (f *fakeAudio) ConvertToMP3(_ context.Context, in, format, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	f.converted = append(f.converted, format)
	return os.WriteFile(out, data, 0o644)
}

func (f *fakeAudio) ClipDuration(string) (time.Duration, error) {
	if f.durErr != nil {
		return 0, f.durErr
	}
	return time.Second, nil
}

func (f *fakeAudio) ProbeDuration(context.Context, string) (time.Duration, error) {
	return 0, errors.New("no ffprobe")
}

func (f *fakeAudio) Assemble(_ context.Context, clips []string, _ string, out string) error {
	f.assembled = clips
	return os.WriteFile(out, []byte("assembled"), 0o644)
}

type fakeVideo struct {
	called     bool
	background string
}

func (f *fakeVideo) Render(_ context.Context, _, bg, out string) error {
	f.called = true
	f.background = bg
	return os.WriteFile(out, []byte("mp4"), 0o644)
}

type fakeGenerator struct {
	narrative string
	opts      script.GenerateOptions
}

func (f *fakeGenerator) Generate(_ context.Context, narrative string, opts script.GenerateOptions) (string, error) {
	f.narrative = narrative
	f.opts = opts
	return sampleScript, nil
}

type fakePublisher struct {
	got publish.Artifacts
}

func (f *fakePublisher) Publish(_ context.Context, a publish.Artifacts) (*publish.InterviewItem, error) {
	f.got = a
	return &publish.InterviewItem{InterviewID: "01TEST", Title: a.Title}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setup returns a config rooted in a temp dir with the sample script in
// place of the user script.
func setup(t *testing.T, withScript bool) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.ScriptPath = filepath.Join(dir, "Interview_script.md")
	cfg.NarrativePath = filepath.Join(dir, "narrative.txt")
	cfg.BackgroundImage = filepath.Join(dir, "background.jpg")
	if withScript {
		if err := os.WriteFile(cfg.ScriptPath, []byte(sampleScript), 0o644); err != nil {
			t.Fatalf("write script: %v", err)
		}
	}
	return cfg
}

func TestRunScriptOnly(t *testing.T) {
	cfg := setup(t, true)
	var events []progress.Event

	res, err := Run(context.Background(), Options{
		Config:     cfg,
		ScriptOnly: true,
		Provider:   &fakeProvider{},
		OnProgress: func(e progress.Event) { events = append(events, e) },
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ScriptOrigin != script.OriginUser {
		t.Errorf("origin = %q, want user", res.ScriptOrigin)
	}
	if len(res.Dialogue) != 4 {
		t.Fatalf("dialogue = %d lines, want 4", len(res.Dialogue))
	}
	if res.AudioPath != "" {
		t.Errorf("script-only run produced audio %q", res.AudioPath)
	}
	if _, err := os.Stat(cfg.ScriptOutputPath()); err != nil {
		t.Errorf("script not copied to output dir: %v", err)
	}
	last := events[len(events)-1]
	if last.Stage != progress.StageComplete || last.AudioFile != "" {
		t.Errorf("last event = %+v, want script-only completion", last)
	}
}

func TestRunFullWithoutBackground(t *testing.T) {
	cfg := setup(t, true)
	provider := &fakeProvider{}
	audio := &fakeAudio{}
	vid := &fakeVideo{}
	var lineEvents int

	res, err := Run(context.Background(), Options{
		Config:   cfg,
		Provider: provider,
		Audio:    audio,
		Video:    vid,
		OnProgress: func(e progress.Event) {
			if e.Stage == progress.StageTTS && e.LineNum > 0 {
				lineEvents++
			}
		},
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantVoices := []string{"iv", "ex", "iv", "ex"}
	for i, v := range provider.calls {
		if v.ID != wantVoices[i] {
			t.Errorf("line %d voice = %q, want %q", i+1, v.ID, wantVoices[i])
		}
	}
	if lineEvents != 4 {
		t.Errorf("line events = %d, want 4", lineEvents)
	}
	if len(audio.assembled) != 4 {
		t.Fatalf("assembled %d clips, want 4", len(audio.assembled))
	}
	for _, f := range audio.converted {
		if f != "mp3" {
			t.Errorf("converted format %q, want mp3", f)
		}
	}
	if res.AudioPath != cfg.AudioOutputPath() {
		t.Errorf("audio = %q, want %q", res.AudioPath, cfg.AudioOutputPath())
	}
	if vid.called || res.VideoPath != "" {
		t.Error("video rendered without a background image")
	}

	// 200ms lead + 4 x (1s + 250ms)
	if res.Duration != 5200*time.Millisecond {
		t.Errorf("duration = %v, want 5.2s", res.Duration)
	}
	srt, err := os.ReadFile(cfg.SubtitlePath())
	if err != nil {
		t.Fatalf("read subtitles: %v", err)
	}
	if !strings.Contains(string(srt), "00:00:00,200 --> 00:00:01,200") {
		t.Errorf("subtitles missing first cue:\n%s", srt)
	}
}

func TestRunRendersWithBackground(t *testing.T) {
	cfg := setup(t, true)
	if err := os.WriteFile(cfg.BackgroundImage, []byte("jpg"), 0o644); err != nil {
		t.Fatal(err)
	}
	vid := &fakeVideo{}

	res, err := Run(context.Background(), Options{
		Config:   cfg,
		Provider: &fakeProvider{},
		Audio:    &fakeAudio{},
		Video:    vid,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !vid.called || vid.background != cfg.BackgroundImage {
		t.Errorf("render background = %q (called=%v)", vid.background, vid.called)
	}
	if res.VideoPath != cfg.VideoOutputPath() {
		t.Errorf("video = %q, want %q", res.VideoPath, cfg.VideoOutputPath())
	}
}

func TestRunVideoOptions(t *testing.T) {
	tests := []struct {
		name        string
		noVideo     bool
		videoAlways bool
		wantCalled  bool
	}{
		{"solid fallback", false, true, true},
		{"disabled", true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setup(t, true)
			vid := &fakeVideo{background: "unset"}
			_, err := Run(context.Background(), Options{
				Config:      cfg,
				NoVideo:     tt.noVideo,
				VideoAlways: tt.videoAlways,
				Provider:    &fakeProvider{},
				Audio:       &fakeAudio{},
				Video:       vid,
				Logger:      quietLogger(),
			})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if vid.called != tt.wantCalled {
				t.Fatalf("called = %v, want %v", vid.called, tt.wantCalled)
			}
			if tt.wantCalled && vid.background != "" {
				t.Errorf("background = %q, want solid color", vid.background)
			}
		})
	}
}

func TestRunTTSFailure(t *testing.T) {
	cfg := setup(t, true)
	audio := &fakeAudio{}
	var failed progress.Event

	_, err := Run(context.Background(), Options{
		Config:   cfg,
		Provider: &fakeProvider{fail: 2},
		Audio:    audio,
		OnProgress: func(e progress.Event) {
			if e.Error != nil {
				failed = e
			}
		},
		Logger: quietLogger(),
	})
	var pe *PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PipelineError", err)
	}
	if pe.Stage != "tts" {
		t.Errorf("stage = %q, want tts", pe.Stage)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q does not name the failing line", err)
	}
	if audio.assembled != nil {
		t.Error("assembly ran after a TTS failure")
	}
	if failed.Stage != progress.StageTTS {
		t.Errorf("error event stage = %q, want tts", failed.Stage)
	}
}

func TestRunGeneratesFromNarrative(t *testing.T) {
	cfg := setup(t, false)
	if err := os.WriteFile(cfg.NarrativePath, []byte("A lab cloned a voice."), 0o644); err != nil {
		t.Fatal(err)
	}
	gen := &fakeGenerator{}

	res, err := Run(context.Background(), Options{
		Config:     cfg,
		Topic:      "voice cloning",
		ScriptOnly: true,
		Generator:  gen,
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ScriptOrigin != script.OriginGenerated {
		t.Errorf("origin = %q, want generated", res.ScriptOrigin)
	}
	if !strings.Contains(gen.narrative, "cloned a voice") {
		t.Errorf("generator got narrative %q", gen.narrative)
	}
	if gen.opts.Minutes != config.DefaultMinutes || gen.opts.Topic != "voice cloning" {
		t.Errorf("generator options = %+v", gen.opts)
	}
}

func TestRunRequiredNarrativeMissing(t *testing.T) {
	cfg := setup(t, false)
	_, err := Run(context.Background(), Options{
		Config:          cfg,
		NarrativeSource: filepath.Join(t.TempDir(), "missing.txt"),
		ScriptOnly:      true,
		Generator:       &fakeGenerator{},
		Logger:          quietLogger(),
	})
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Stage != "script" {
		t.Fatalf("err = %v, want script-stage PipelineError", err)
	}
}

func TestRunPublishes(t *testing.T) {
	cfg := setup(t, true)
	pub := &fakePublisher{}

	res, err := Run(context.Background(), Options{
		Config:    cfg,
		Provider:  &fakeProvider{},
		Audio:     &fakeAudio{},
		Video:     &fakeVideo{},
		Publisher: pub,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Published == nil || res.Published.InterviewID != "01TEST" {
		t.Fatalf("published = %+v", res.Published)
	}
	if pub.got.Title != "What happened in the lab?" {
		t.Errorf("title = %q", pub.got.Title)
	}
	if pub.got.AudioPath != cfg.AudioOutputPath() || pub.got.SubtitlePath != cfg.SubtitlePath() {
		t.Errorf("artifacts = %+v", pub.got)
	}
	if pub.got.Duration != "0:05" {
		t.Errorf("duration = %q, want 0:05", pub.got.Duration)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, ""},
		{5200 * time.Millisecond, "0:05"},
		{59500 * time.Millisecond, "1:00"},
		{125 * time.Second, "2:05"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateTitle(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := truncateTitle(long)
	if len([]rune(got)) != 80 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateTitle = %q", got)
	}
	if truncateTitle("short") != "short" {
		t.Error("short title modified")
	}
}
