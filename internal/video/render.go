package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Renderer turns an audio track into a static-background MP4.
type Renderer struct {
	ffmpeg string
}

// NewRenderer uses the given ffmpeg binary, defaulting to ffmpeg on PATH.
func NewRenderer(ffmpegPath string) *Renderer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Renderer{ffmpeg: ffmpegPath}
}

// Render composites audio over the letterboxed background. An empty
// background path renders a solid-color frame instead.
func (r *Renderer) Render(ctx context.Context, audioPath, background, output string) error {
	args, err := renderArgs(audioPath, background, output)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.ffmpeg, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg video render failed: %w\n%s", err, stderr.String())
	}

	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("video not created: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("video file is empty")
	}
	return nil
}

func renderArgs(audioPath, background, output string) ([]string, error) {
	fps := strconv.Itoa(FPS)
	var args []string
	if background != "" {
		w, h, err := ImageSize(background)
		if err != nil {
			return nil, err
		}
		args = []string{
			"-loop", "1",
			"-framerate", fps,
			"-i", background,
			"-i", audioPath,
			"-vf", filter(Letterbox(w, h, FrameWidth, FrameHeight)),
			"-tune", "stillimage",
		}
	} else {
		args = []string{
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", Background, FrameWidth, FrameHeight, FPS),
			"-i", audioPath,
			"-pix_fmt", "yuv420p",
		}
	}
	args = append(args,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "libx264",
		"-r", fps,
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		"-y",
		output,
	)
	return args, nil
}
