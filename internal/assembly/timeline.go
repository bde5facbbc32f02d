package assembly

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/apresai/interviewcast/internal/script"
)

// Cue places one dialogue line on the assembled track.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// ClipDuration returns an MP3's playback length as the concat demuxer sees
// it: encoder delay and padding from the Info tag are excluded. Files
// without gapless info fall back to the decoded length.
func ClipDuration(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("open clip: %w", err)
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	rate := time.Duration(dec.SampleRate())
	if g, ok := readGapless(data); ok {
		return time.Duration(g.samples()) * time.Second / rate, nil
	}
	// go-mp3 always decodes to 16-bit stereo: 4 bytes per sample frame.
	frames := dec.Length() / 4
	if frames <= 0 {
		return 0, fmt.Errorf("decode %s: unknown length", path)
	}
	return time.Duration(frames) * time.Second / rate, nil
}

// BuildTimeline lays out cues with the same padding Assemble uses.
func BuildTimeline(durations []time.Duration) []Cue {
	cues := make([]Cue, len(durations))
	at := LeadSilence
	for i, d := range durations {
		cues[i] = Cue{Index: i, Start: at, End: at + d}
		at += d + LineSpacer
	}
	return cues
}

// TotalDuration is the track length implied by the cues.
func TotalDuration(cues []Cue) time.Duration {
	if len(cues) == 0 {
		return 0
	}
	return cues[len(cues)-1].End + LineSpacer
}

// WriteSRT writes a SubRip sidecar, one cue per dialogue line.
func WriteSRT(w io.Writer, cues []Cue, d script.Dialogue) error {
	if len(cues) != len(d) {
		return fmt.Errorf("timeline has %d cues for %d lines", len(cues), len(d))
	}
	for i, c := range cues {
		line := d[c.Index]
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s: %s\n\n",
			i+1, srtTime(c.Start), srtTime(c.End), line.Speaker, line.Text); err != nil {
			return err
		}
	}
	return nil
}

func srtTime(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms %= 3_600_000
	m := ms / 60_000
	ms %= 60_000
	s := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ClipDuration satisfies consumers that take the assembler as their audio
// backend.
func (a *FFmpegAssembler) ClipDuration(path string) (time.Duration, error) {
	return ClipDuration(path)
}
