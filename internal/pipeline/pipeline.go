package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/interviewcast/internal/assembly"
	"github.com/apresai/interviewcast/internal/config"
	"github.com/apresai/interviewcast/internal/progress"
	"github.com/apresai/interviewcast/internal/publish"
	"github.com/apresai/interviewcast/internal/script"
	"github.com/apresai/interviewcast/internal/tts"
)

var tracer = otel.Tracer("github.com/apresai/interviewcast/internal/pipeline")

// AudioTools is what the pipeline needs from the audio backend.
type AudioTools interface {
	assembly.Assembler
	ConvertToMP3(ctx context.Context, input, format, output string) error
	ClipDuration(path string) (time.Duration, error)
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// VideoRenderer composites the track over a background. An empty background
// means a solid-color frame.
type VideoRenderer interface {
	Render(ctx context.Context, audioPath, background, output string) error
}

// Publisher uploads finished artifacts.
type Publisher interface {
	Publish(ctx context.Context, a publish.Artifacts) (*publish.InterviewItem, error)
}

// Options configure one run. Nil collaborators are built from Config.
type Options struct {
	Config config.Config

	// NarrativeSource overrides Config.NarrativePath; when set the narrative
	// must exist.
	NarrativeSource string
	Topic           string
	ForceGenerate   bool
	ScriptOnly      bool
	NoVideo         bool
	VideoAlways     bool // render a solid-color video when no background exists

	Generator script.Generator
	Provider  tts.Provider
	Audio     AudioTools
	Video     VideoRenderer
	Publisher Publisher

	OnProgress progress.Callback
	Logger     *slog.Logger
}

// Result describes what a run produced.
type Result struct {
	ScriptPath   string
	ScriptOrigin script.Origin
	Dialogue     script.Dialogue
	AudioPath    string
	SubtitlePath string
	VideoPath    string
	Duration     time.Duration
	Cues         []assembly.Cue
	Published    *publish.InterviewItem
}

// PipelineError tags a failure with the stage that produced it.
type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

type runner struct {
	opts  Options
	cfg   config.Config
	log   *slog.Logger
	emit  progress.Callback
	start time.Time
}

// Run executes narrative → script → parse → tts → assembly → video, and
// optionally publish.
func Run(ctx context.Context, opts Options) (res *Result, err error) {
	r := &runner{
		opts:  opts,
		cfg:   opts.Config,
		log:   opts.Logger,
		emit:  opts.OnProgress,
		start: time.Now(),
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.emit == nil {
		r.emit = progress.NopCallback
	}

	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			ev := progress.NewEvent(progress.StageComplete, "Failed", r.start)
			var pe *PipelineError
			if errors.As(err, &pe) {
				ev.Stage = progress.Stage(pe.Stage)
			}
			ev.Error = err
			r.emit(ev)
		}
		span.End()
	}()

	if err := r.cfg.EnsureOutputDir(); err != nil {
		return nil, &PipelineError{Stage: "script", Message: "failed to prepare output directory", Err: err}
	}

	res = &Result{}
	if err := r.resolveScript(ctx, res); err != nil {
		return nil, err
	}
	if err := r.parse(ctx, res); err != nil {
		return nil, err
	}

	if opts.ScriptOnly {
		ev := progress.NewEvent(progress.StageComplete, fmt.Sprintf("Script saved to %s", res.ScriptPath), r.start)
		ev.ScriptFile = res.ScriptPath
		r.emit(ev)
		return res, nil
	}

	tmpDir, err := os.MkdirTemp("", "interviewcast-*")
	if err != nil {
		return nil, &PipelineError{Stage: "tts", Message: "failed to create temp directory", Err: err}
	}
	defer os.RemoveAll(tmpDir)

	clips, err := r.synthesize(ctx, res.Dialogue, tmpDir)
	if err != nil {
		return nil, err
	}
	if err := r.assemble(ctx, res, clips, tmpDir); err != nil {
		return nil, err
	}
	if err := r.renderVideo(ctx, res); err != nil {
		return nil, err
	}
	if err := r.publish(ctx, res); err != nil {
		return nil, err
	}

	r.complete(ctx, res)
	span.SetAttributes(
		attribute.Int("interview.lines", len(res.Dialogue)),
		attribute.String("interview.script_origin", string(res.ScriptOrigin)),
		attribute.Bool("interview.video", res.VideoPath != ""),
	)
	return res, nil
}

func (r *runner) stage(ctx context.Context, name string) (context.Context, trace.Span, time.Time) {
	ctx, span := tracer.Start(ctx, "pipeline."+name)
	return ctx, span, time.Now()
}

func endStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *runner) resolveScript(ctx context.Context, res *Result) (err error) {
	ctx, span, started := r.stage(ctx, "script")
	defer func() { endStage(span, err) }()

	r.emit(progress.NewEvent(progress.StageScript, "Preparing script...", r.start))

	narrative := r.cfg.NarrativePath
	required := false
	if r.opts.NarrativeSource != "" {
		narrative = r.opts.NarrativeSource
		required = true
	}

	gen := r.opts.Generator
	if gen == nil {
		gen = &lazyGenerator{cfg: r.cfg}
	}

	resolver := &script.Resolver{
		UserScriptPath:    r.cfg.ScriptPath,
		OutputPath:        r.cfg.ScriptOutputPath(),
		NarrativeSource:   narrative,
		NarrativeRequired: required,
		Generator:         gen,
		Options: script.GenerateOptions{
			Minutes:     r.cfg.Minutes,
			Temperature: r.cfg.Temperature,
			Topic:       r.opts.Topic,
		},
		Force:  r.opts.ForceGenerate,
		Logger: r.log,
	}

	_, origin, err := resolver.Resolve(ctx)
	if err != nil {
		return &PipelineError{Stage: "script", Message: "failed to obtain script", Err: err}
	}
	res.ScriptPath = r.cfg.ScriptOutputPath()
	res.ScriptOrigin = origin

	span.SetAttributes(attribute.String("script.origin", string(origin)))
	r.log.InfoContext(ctx, "script ready",
		"origin", origin,
		"path", res.ScriptPath,
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	return nil
}

func (r *runner) parse(ctx context.Context, res *Result) (err error) {
	ctx, span, _ := r.stage(ctx, "parse")
	defer func() { endStage(span, err) }()

	r.emit(progress.NewEvent(progress.StageParse, "Parsing dialogue...", r.start))

	data, err := os.ReadFile(res.ScriptPath)
	if err != nil {
		return &PipelineError{Stage: "parse", Message: "failed to read script", Err: err}
	}
	d, err := script.ParseDialogue(string(data))
	if err != nil {
		return &PipelineError{Stage: "parse", Message: "no dialogue found", Err: err}
	}
	res.Dialogue = d

	counts := d.Counts()
	span.SetAttributes(attribute.Int("dialogue.lines", len(d)))
	r.log.InfoContext(ctx, "dialogue parsed",
		"lines", len(d),
		"interviewer", counts[script.Interviewer],
		"expert", counts[script.Expert],
		"est_minutes", d.EstimateMinutes(),
	)
	return nil
}

func (r *runner) synthesize(ctx context.Context, d script.Dialogue, tmpDir string) (clips []tts.Clip, err error) {
	ctx, span, started := r.stage(ctx, "tts")
	defer func() { endStage(span, err) }()

	provider := r.opts.Provider
	if provider == nil {
		if err := r.cfg.RequireKey(r.cfg.TTSBackend); err != nil {
			return nil, &PipelineError{Stage: "tts", Message: "missing credentials", Err: err}
		}
		provider, err = tts.NewProvider(ctx, r.cfg.TTSBackend, tts.ProviderConfig{
			APIKey:  r.cfg.KeyFor(r.cfg.TTSBackend),
			BaseURL: r.ttsBaseURL(),
			Model:   r.cfg.TTSModel,
			Speed:   r.cfg.TTSSpeed,
		})
		if err != nil {
			return nil, &PipelineError{Stage: "tts", Message: "failed to create TTS provider", Err: err}
		}
		defer provider.Close()
	}

	voices := tts.ResolveVoices(provider, r.cfg.InterviewerVoice, r.cfg.ExpertVoice)
	span.SetAttributes(
		attribute.String("tts.provider", provider.Name()),
		attribute.String("tts.voice.interviewer", voices.Interviewer.ID),
		attribute.String("tts.voice.expert", voices.Expert.ID),
	)

	r.emit(progress.LineEvent(0, len(d), "Synthesizing dual-voice audio...", r.start))
	clips, err = tts.SynthesizeAll(ctx, provider, voices, d, filepath.Join(tmpDir, "clips"), func(c tts.Clip, total int) {
		r.emit(progress.LineEvent(c.Index+1, total, fmt.Sprintf("Synthesizing line %d/%d (%s)", c.Index+1, total, c.Speaker), r.start))
	})
	if err != nil {
		return nil, &PipelineError{Stage: "tts", Message: "failed to synthesize audio", Err: err}
	}

	r.log.InfoContext(ctx, "tts complete",
		"provider", provider.Name(),
		"clips", len(clips),
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	return clips, nil
}

func (r *runner) ttsBaseURL() string {
	if r.cfg.TTSBackend == "openai" {
		return r.cfg.OpenAIBaseURL
	}
	return ""
}

func (r *runner) audioTools() AudioTools {
	if r.opts.Audio != nil {
		return r.opts.Audio
	}
	return assembly.NewFFmpegAssembler("", "")
}

func (r *runner) assemble(ctx context.Context, res *Result, clips []tts.Clip, tmpDir string) (err error) {
	ctx, span, started := r.stage(ctx, "assembly")
	defer func() { endStage(span, err) }()

	r.emit(progress.NewEvent(progress.StageAssembly, "Assembling audio...", r.start))
	audio := r.audioTools()

	normDir := filepath.Join(tmpDir, "normalized")
	if err := os.MkdirAll(normDir, 0o755); err != nil {
		return &PipelineError{Stage: "assembly", Message: "failed to create work directory", Err: err}
	}

	paths := make([]string, len(clips))
	durations := make([]time.Duration, len(clips))
	timed := true
	for i, c := range clips {
		out := filepath.Join(normDir, fmt.Sprintf("line-%03d.mp3", c.Index+1))
		if err := audio.ConvertToMP3(ctx, c.Path, string(c.Format), out); err != nil {
			return &PipelineError{Stage: "assembly", Message: fmt.Sprintf("failed to normalize line %d", c.Index+1), Err: err}
		}
		paths[i] = out
		if !timed {
			continue
		}
		d, err := audio.ClipDuration(out)
		if err != nil {
			r.log.WarnContext(ctx, "clip duration unavailable, skipping subtitles", "line", c.Index+1, "error", err)
			timed = false
			continue
		}
		durations[i] = d
	}

	res.AudioPath = r.cfg.AudioOutputPath()
	if err := audio.Assemble(ctx, paths, tmpDir, res.AudioPath); err != nil {
		return &PipelineError{Stage: "assembly", Message: "failed to assemble audio", Err: err}
	}

	if timed {
		res.Cues = assembly.BuildTimeline(durations)
		res.Duration = assembly.TotalDuration(res.Cues)
		if err := r.writeSubtitles(res); err != nil {
			r.log.WarnContext(ctx, "failed to write subtitles", "error", err)
		}
	}
	if probed, err := audio.ProbeDuration(ctx, res.AudioPath); err == nil {
		res.Duration = probed
	}

	r.log.InfoContext(ctx, "audio saved",
		"path", res.AudioPath,
		"duration", res.Duration.Round(time.Millisecond).String(),
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	return nil
}

func (r *runner) writeSubtitles(res *Result) error {
	path := r.cfg.SubtitlePath()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := assembly.WriteSRT(f, res.Cues, res.Dialogue); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	res.SubtitlePath = path
	return nil
}

func (r *runner) renderVideo(ctx context.Context, res *Result) (err error) {
	if r.opts.NoVideo {
		return nil
	}

	background := r.cfg.BackgroundImage
	if _, statErr := os.Stat(background); statErr != nil {
		if !r.opts.VideoAlways {
			r.log.InfoContext(ctx, "no background image provided, skipping video render", "background", background)
			return nil
		}
		background = ""
	}

	ctx, span, started := r.stage(ctx, "video")
	defer func() { endStage(span, err) }()

	r.emit(progress.NewEvent(progress.StageVideo, "Rendering simple video...", r.start))
	renderer := r.opts.Video
	if renderer == nil {
		renderer = defaultRenderer()
	}

	out := r.cfg.VideoOutputPath()
	if err := renderer.Render(ctx, res.AudioPath, background, out); err != nil {
		return &PipelineError{Stage: "video", Message: "failed to render video", Err: err}
	}
	res.VideoPath = out

	r.log.InfoContext(ctx, "video saved",
		"path", out,
		"solid_background", background == "",
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	return nil
}

func (r *runner) publish(ctx context.Context, res *Result) (err error) {
	if r.opts.Publisher == nil {
		return nil
	}
	ctx, span, _ := r.stage(ctx, "publish")
	defer func() { endStage(span, err) }()

	r.emit(progress.NewEvent(progress.StagePublish, "Publishing...", r.start))
	item, err := r.opts.Publisher.Publish(ctx, publish.Artifacts{
		Title:         titleFor(res.Dialogue),
		ScriptPath:    res.ScriptPath,
		AudioPath:     res.AudioPath,
		VideoPath:     res.VideoPath,
		SubtitlePath:  res.SubtitlePath,
		Duration:      formatDuration(res.Duration),
		Dialogue:      res.Dialogue,
		ScriptBackend: r.cfg.ScriptBackend,
		TTSProvider:   r.cfg.TTSBackend,
	})
	if err != nil {
		return &PipelineError{Stage: "publish", Message: "failed to publish", Err: err}
	}
	res.Published = item
	span.SetAttributes(attribute.String("interview.id", item.InterviewID))
	return nil
}

func (r *runner) complete(ctx context.Context, res *Result) {
	ev := progress.NewEvent(progress.StageComplete, "Done", r.start)
	ev.ScriptFile = res.ScriptPath
	ev.AudioFile = res.AudioPath
	ev.VideoFile = res.VideoPath
	ev.Duration = formatDuration(res.Duration)
	if info, err := os.Stat(res.AudioPath); err == nil {
		ev.SizeMB = float64(info.Size()) / (1024 * 1024)
	}
	r.emit(ev)
	r.log.InfoContext(ctx, "pipeline complete", "elapsed", time.Since(r.start).Round(time.Millisecond).String())
}

// titleFor uses the first interviewer question as a title.
func titleFor(d script.Dialogue) string {
	for _, l := range d {
		if l.Speaker == script.Interviewer {
			return truncateTitle(l.Text)
		}
	}
	return "Interview"
}

func truncateTitle(s string) string {
	const max = 80
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// formatDuration renders M:SS, or "" for zero.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
