package assembly

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Audio quality constants for consistent output across all FFmpeg operations.
const (
	AudioBitrate    = "192k"
	AudioSampleRate = "44100"
	AudioChannels   = "2"
	AudioCodec      = "libmp3lame"
	AudioQuality    = "0" // LAME quality (0 = best)
	AudioResampler  = "aresample=resampler=soxr"
)

// Padding applied around dialogue lines in the final track.
const (
	LeadSilence = 200 * time.Millisecond
	LineSpacer  = 250 * time.Millisecond
)

// Assembler joins per-line clips into a single track.
type Assembler interface {
	Assemble(ctx context.Context, clips []string, tmpDir string, output string) error
}

// FFmpegAssembler shells out to ffmpeg and ffprobe.
type FFmpegAssembler struct {
	ffmpeg  string
	ffprobe string
}

// NewFFmpegAssembler uses the given binaries, defaulting to ffmpeg/ffprobe
// on PATH.
func NewFFmpegAssembler(ffmpegPath, ffprobePath string) *FFmpegAssembler {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegAssembler{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// CheckFFmpeg reports whether ffmpeg is available.
func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found on PATH (install it, e.g. 'brew install ffmpeg' or 'apt install ffmpeg')")
	}
	return nil
}

// Assemble writes output as: lead silence, then each clip followed by the
// line spacer. Clips must already be normalized MP3s (see ConvertToMP3).
func (a *FFmpegAssembler) Assemble(ctx context.Context, clips []string, tmpDir string, output string) error {
	if len(clips) == 0 {
		return fmt.Errorf("no audio clips to assemble")
	}

	leadPath := filepath.Join(tmpDir, "lead.mp3")
	if err := a.generateSilence(ctx, LeadSilence, leadPath); err != nil {
		return fmt.Errorf("generate lead silence: %w", err)
	}
	spacerPath := filepath.Join(tmpDir, "spacer.mp3")
	if err := a.generateSilence(ctx, LineSpacer, spacerPath); err != nil {
		return fmt.Errorf("generate spacer: %w", err)
	}

	listPath := filepath.Join(tmpDir, "concat.txt")
	content, err := buildConcatList(clips, leadPath, spacerPath)
	if err != nil {
		return fmt.Errorf("build concat list: %w", err)
	}
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	if err := a.runConcat(ctx, listPath, output); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

func (a *FFmpegAssembler) generateSilence(ctx context.Context, d time.Duration, output string) error {
	return a.run(ctx, "silence generation",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%s:cl=stereo", AudioSampleRate),
		"-t", formatSeconds(d),
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-y",
		output,
	)
}

// buildConcatList renders an ffmpeg concat demuxer list. Paths are made
// absolute because the demuxer resolves relative entries against the list.
func buildConcatList(clips []string, leadPath, spacerPath string) (string, error) {
	var sb strings.Builder
	entry := func(p string) error {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "file '%s'\n", escapeConcatPath(abs))
		return nil
	}

	if err := entry(leadPath); err != nil {
		return "", err
	}
	for _, clip := range clips {
		if err := entry(clip); err != nil {
			return "", err
		}
		if err := entry(spacerPath); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

func (a *FFmpegAssembler) runConcat(ctx context.Context, listPath string, output string) error {
	err := a.run(ctx, "concat",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-af", AudioResampler,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-q:a", AudioQuality,
		"-ar", AudioSampleRate,
		"-ac", AudioChannels,
		"-y",
		output,
	)
	if err != nil {
		return err
	}

	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}
	return nil
}

// ConvertToMP3 normalizes a clip to the shared MP3 settings so the concat
// demuxer sees identical streams. format selects the input interpretation:
//   - "pcm": raw 24kHz 16-bit signed little-endian mono
//   - "wav", "mp3": container is auto-detected
func (a *FFmpegAssembler) ConvertToMP3(ctx context.Context, input string, format string, output string) error {
	var args []string
	switch format {
	case "pcm":
		args = []string{"-f", "s16le", "-ar", "24000", "-ac", "1", "-i", input}
	case "wav", "mp3":
		args = []string{"-i", input}
	default:
		return fmt.Errorf("unsupported audio format for conversion: %s", format)
	}
	args = append(args,
		"-af", AudioResampler,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-q:a", AudioQuality,
		"-ar", AudioSampleRate,
		"-ac", AudioChannels,
		"-y",
		output,
	)
	return a.run(ctx, fmt.Sprintf("conversion (%s → mp3)", format), args...)
}

// ProbeDuration asks ffprobe for the container duration.
func (a *FFmpegAssembler) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	return parseSeconds(string(b))
}

func (a *FFmpegAssembler) run(ctx context.Context, what string, args ...string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s failed: %w\n%s", what, err, stderr.String())
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}
