package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apresai/interviewcast/internal/script"
)

// Clip is one synthesized dialogue line on disk.
type Clip struct {
	Index   int
	Speaker script.Speaker
	Path    string
	Format  AudioFormat
}

// ClipFunc is called after each clip is written.
type ClipFunc func(clip Clip, total int)

// SynthesizeAll renders every line in dialogue order, one request at a time,
// and writes line-NNN.<format> files into dir. The first failure aborts the
// run.
func SynthesizeAll(ctx context.Context, p Provider, voices VoiceMap, d script.Dialogue, dir string, onClip ClipFunc) ([]Clip, error) {
	if len(d) == 0 {
		return nil, fmt.Errorf("no dialogue lines to synthesize")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create clip dir: %w", err)
	}

	clips := make([]Clip, 0, len(d))
	for i, line := range d {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := p.Synthesize(ctx, line.Text, voices.VoiceFor(line.Speaker))
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", i+1, line.Speaker, err)
		}
		if len(res.Data) == 0 {
			return nil, fmt.Errorf("line %d (%s): %s returned no audio", i+1, line.Speaker, p.Name())
		}

		clip := Clip{
			Index:   i,
			Speaker: line.Speaker,
			Path:    filepath.Join(dir, fmt.Sprintf("line-%03d.%s", i+1, res.Format)),
			Format:  res.Format,
		}
		if err := os.WriteFile(clip.Path, res.Data, 0o644); err != nil {
			return nil, fmt.Errorf("write clip %d: %w", i+1, err)
		}
		clips = append(clips, clip)
		if onClip != nil {
			onClip(clip, len(d))
		}
	}
	return clips, nil
}
